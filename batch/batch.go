// Package batch runs bulk shim operations with settle-all-then-count
// semantics: every item's outcome is tracked independently, results are
// aggregated only after all items settle, and the succeeded subset is never
// rolled back.
package batch

import (
	"context"
	"fmt"
	"sync"
)

// Failure pairs a failed item with its error.
type Failure[T any] struct {
	Item T
	Err  error
}

// Result reports the outcome of a bulk operation. Slices preserve the input
// order of their items regardless of completion order.
type Result[T any] struct {
	Succeeded []T
	Failed    []Failure[T]
}

// Counts returns the number of succeeded and failed items.
func (r Result[T]) Counts() (succeeded, failed int) {
	return len(r.Succeeded), len(r.Failed)
}

// Summary renders the console's count wording for a bulk operation, e.g.
// "3 accounts successfully removed." or
// "Failed to remove 1 account. (2 accounts successfully removed.)".
// verbBase/verbPast are the two verb forms ("remove"/"removed").
func (r Result[T]) Summary(verbBase, verbPast, noun string) string {
	succeeded, failed := r.Counts()
	if failed == 0 {
		return fmt.Sprintf("%d %s successfully %s.", succeeded, plural(noun, succeeded), verbPast)
	}
	return fmt.Sprintf("Failed to %s %d %s. (%d %s successfully %s.)",
		verbBase, failed, plural(noun, failed), succeeded, plural(noun, succeeded), verbPast)
}

// Run applies fn to every item concurrently and waits for all of them to
// settle. Item errors are collected, never short-circuited; ctx cancellation
// only takes effect inside fn itself.
func Run[T any](ctx context.Context, items []T, fn func(context.Context, T) error) Result[T] {
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			errs[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()

	var result Result[T]
	for i, item := range items {
		if errs[i] != nil {
			result.Failed = append(result.Failed, Failure[T]{Item: item, Err: errs[i]})
		} else {
			result.Succeeded = append(result.Succeeded, item)
		}
	}
	return result
}

func plural(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
