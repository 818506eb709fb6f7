package operator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/eventsandbox/safe/batch"
	"github.com/eventsandbox/safe/dce"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/resolver"
	"github.com/eventsandbox/safe/tables"
)

var errUnknownAction = errors.New("unknown API action")

// Listing limits passed to the DCE API. The engine paginates beyond these,
// which the console does not follow; sandboxes stay well below them.
const (
	leaseListLimit = 500
	usageListLimit = 1000
)

// fetchResult pairs one parallel sub-call's payload with its error.
type fetchResult struct {
	payload any
	err     error
}

// parallel runs the given fetches concurrently and waits for all of them.
func parallel(ctx context.Context, fns ...func(context.Context) (any, error)) []fetchResult {
	results := make([]fetchResult, len(fns))
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func(context.Context) (any, error)) {
			defer wg.Done()
			results[i].payload, results[i].err = fn(ctx)
		}(i, fn)
	}
	wg.Wait()
	return results
}

// validList reports whether a sub-call produced a plain JSON array: no
// transport error, no {message} marker, array-shaped.
func validList(r fetchResult) bool {
	if r.err != nil {
		return false
	}
	if _, hasMsg := envelope.UpstreamMessage(r.payload); hasMsg {
		return false
	}
	_, isArr := r.payload.([]any)
	return isArr
}

func (h *Handler) listLeases(ctx context.Context) string {
	results := parallel(ctx,
		func(ctx context.Context) (any, error) { return h.dce.ListLeases(ctx, leaseListLimit) },
		func(ctx context.Context) (any, error) { return h.dce.ListUsage(ctx, usageListLimit) },
	)
	leasesRes, usageRes := results[0], results[1]

	if leasesRes.err != nil {
		return envelope.Error("Failed to list leases.", leasesRes.err.Error())
	}
	if msg, ok := envelope.UpstreamMessage(leasesRes.payload); ok {
		return envelope.Error("Failed to list leases.", msg)
	}
	if usageRes.err != nil {
		return envelope.Error("Failed to list usage.", usageRes.err.Error())
	}
	if msg, ok := envelope.UpstreamMessage(usageRes.payload); ok {
		return envelope.Error("Failed to list usage.", msg)
	}

	rawLeases, ok := leasesRes.payload.([]any)
	if !ok {
		return envelope.Error("Failed to list leases.", leasesRes.payload)
	}
	usage, ok := dce.AsList[dce.UsageRecord](usageRes.payload)
	if !ok {
		return envelope.Error("Failed to list leases.", usageRes.payload)
	}

	// Augment each lease with its spend while keeping the upstream fields
	// untransformed.
	augmented := make([]any, 0, len(rawLeases))
	for _, raw := range rawLeases {
		lease, _ := dce.As[dce.Lease](raw)
		item, _ := raw.(map[string]any)
		out := make(map[string]any, len(item)+1)
		for k, v := range item {
			out[k] = v
		}
		out["spendAmount"] = LeaseSpend(lease, usage)
		augmented = append(augmented, out)
	}

	return envelope.Success("", map[string]any{"leases": augmented})
}

func (h *Handler) createLease(ctx context.Context, params resolver.Params) string {
	const msg = "Internal error while trying to create lease."

	budgetAmount, ok := params.Float("budgetAmount")
	if !ok || budgetAmount == 0 {
		return envelope.Error(msg, "Parameter 'budgetAmount' missing.")
	}
	expiresOn, ok := params.Int64("expiresOn")
	if !ok || expiresOn == 0 {
		return envelope.Error(msg, "Parameter 'expiresOn' missing.")
	}
	principalID, ok := params.String("principalId")
	if !ok {
		return envelope.Error(msg, "Parameter 'principalId' missing.")
	}
	budgetCurrency, ok := params.String("budgetCurrency")
	if !ok {
		return envelope.Error(msg, "Parameter 'budgetCurrency' missing.")
	}
	emails, ok := params.StringSlice("budgetNotificationEmails")
	if !ok {
		return envelope.Error(msg, "Parameter 'budgetNotificationEmails' missing.")
	}
	user, ok := params.String("user")
	if !ok {
		return envelope.Error(msg, "Parameter 'user' missing.")
	}

	payload, err := h.dce.CreateLease(ctx, dce.CreateLeaseInput{
		PrincipalID:              principalID,
		BudgetAmount:             budgetAmount,
		BudgetCurrency:           budgetCurrency,
		BudgetNotificationEmails: emails,
		ExpiresOn:                expiresOn,
	})
	if err != nil {
		return envelope.Error("Failed to create lease for "+user+".", err.Error())
	}
	if code, message, detail, ok := envelope.UpstreamError(payload); ok {
		return envelope.Error(envelope.LeaseCreateErrorMessage(code, message, user), detail)
	}
	return envelope.Success("Lease for "+user+" successfully created.", payload)
}

func (h *Handler) updateLease(ctx context.Context, params resolver.Params) string {
	const msg = "Internal error while trying to update lease."

	leaseStatus, ok := params.String("leaseStatus")
	if !ok {
		return envelope.Error(msg, "Parameter 'leaseStatus' missing.")
	}
	leaseStatusReason, ok := params.String("leaseStatusReason")
	if !ok {
		return envelope.Error(msg, "Parameter 'leaseStatusReason' missing.")
	}
	budgetAmount, ok := params.Float("budgetAmount")
	if !ok || budgetAmount == 0 {
		return envelope.Error(msg, "Parameter 'budgetAmount' missing.")
	}
	expiresOn, ok := params.Int64("expiresOn")
	if !ok || expiresOn == 0 {
		return envelope.Error(msg, "Parameter 'expiresOn' missing.")
	}
	accountID, ok := params.String("accountId")
	if !ok {
		return envelope.Error(msg, "Parameter 'accountId' missing.")
	}
	principalID, ok := params.String("principalId")
	if !ok {
		return envelope.Error(msg, "Parameter 'principalId' missing.")
	}
	emails, ok := params.StringSlice("budgetNotificationEmails")
	if !ok {
		return envelope.Error(msg, "Parameter 'budgetNotificationEmails' missing.")
	}
	user, ok := params.String("user")
	if !ok {
		return envelope.Error(msg, "Parameter 'user' missing.")
	}

	attrs, err := h.leases.UpdateLease(ctx, tables.LeaseUpdate{
		AccountID:                accountID,
		PrincipalID:              principalID,
		LeaseStatus:              leaseStatus,
		LeaseStatusReason:        leaseStatusReason,
		BudgetAmount:             budgetAmount,
		ExpiresOn:                expiresOn,
		BudgetNotificationEmails: emails,
	})
	if err != nil {
		return envelope.Error("Error trying to update DynamoDB table record for lease for "+user+".", err.Error())
	}
	return envelope.Success("DynamoDB table record for lease for "+user+" successfully updated.",
		map[string]any{"Attributes": attrs})
}

func (h *Handler) terminateLease(ctx context.Context, params resolver.Params) string {
	const msg = "Internal error while trying to terminate lease."

	principalID, ok := params.String("principalId")
	if !ok {
		return envelope.Error(msg, "Parameter 'principalId' missing.")
	}
	accountID, ok := params.String("accountId")
	if !ok {
		return envelope.Error(msg, "Parameter 'accountId' missing.")
	}
	user, ok := params.String("user")
	if !ok {
		return envelope.Error(msg, "Parameter 'user' missing.")
	}

	payload, err := h.dce.TerminateLease(ctx, principalID, accountID)
	if err != nil {
		return envelope.Error("Failed to terminate lease for "+user+".", err.Error())
	}
	if m, ok := envelope.UpstreamMessage(payload); ok {
		return envelope.Error("Failed to terminate lease for "+user+".", m)
	}
	return envelope.Success("Lease for "+user+" successfully terminated.", payload)
}

// leaseRef identifies one lease in a bulk termination request.
type leaseRef struct {
	PrincipalID string `json:"principalId"`
	AccountID   string `json:"accountId"`
	User        string `json:"user"`
}

func (h *Handler) terminateLeases(ctx context.Context, params resolver.Params) string {
	const msg = "Internal error while trying to terminate leases."

	refs, ok := leaseRefs(params["leases"])
	if !ok || len(refs) == 0 {
		return envelope.Error(msg, "Parameter 'leases' missing.")
	}

	result := batch.Run(ctx, refs, func(ctx context.Context, ref leaseRef) error {
		payload, err := h.dce.TerminateLease(ctx, ref.PrincipalID, ref.AccountID)
		if err != nil {
			return err
		}
		if m, ok := envelope.UpstreamMessage(payload); ok {
			return errors.New(errorText(m))
		}
		return nil
	})

	summary := result.Summary("terminate", "terminated", "lease")
	failed := make([]map[string]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]string{
			"principalId": f.Item.PrincipalID,
			"accountId":   f.Item.AccountID,
			"error":       f.Err.Error(),
		})
	}
	succeeded := make([]map[string]string, 0, len(result.Succeeded))
	for _, s := range result.Succeeded {
		succeeded = append(succeeded, map[string]string{
			"principalId": s.PrincipalID,
			"accountId":   s.AccountID,
		})
	}
	body := map[string]any{"succeeded": succeeded, "failed": failed}

	if len(result.Failed) > 0 {
		return envelope.Error(summary, body)
	}
	return envelope.Success(summary, body)
}

func (h *Handler) deleteLease(ctx context.Context, params resolver.Params) string {
	const msg = "Internal error while trying to delete lease."

	principalID, ok := params.String("principalId")
	if !ok {
		return envelope.Error(msg, "Parameter 'principalId' missing.")
	}
	accountID, ok := params.String("accountId")
	if !ok {
		return envelope.Error(msg, "Parameter 'accountId' missing.")
	}
	user, ok := params.String("user")
	if !ok {
		return envelope.Error(msg, "Parameter 'user' missing.")
	}

	if err := h.leases.DeleteLease(ctx, accountID, principalID); err != nil {
		return envelope.Error("Error trying to delete lease for "+user+".", err.Error())
	}
	return envelope.Success("Lease for "+user+" successfully deleted.", map[string]any{})
}

func (h *Handler) getStatistics(ctx context.Context) string {
	results := parallel(ctx,
		func(ctx context.Context) (any, error) { return h.dce.ListLeases(ctx, leaseListLimit) },
		func(ctx context.Context) (any, error) { return h.dce.ListAccounts(ctx) },
		func(ctx context.Context) (any, error) { return h.dce.ListUsage(ctx, usageListLimit) },
	)

	for _, r := range results {
		if r.err != nil {
			return envelope.Error("Error trying to retrieve data for statistics.", r.err.Error())
		}
	}
	if !validList(results[0]) || !validList(results[1]) || !validList(results[2]) {
		return envelope.Error("Failed to load statistics data.",
			[]any{results[0].payload, results[1].payload, results[2].payload})
	}

	return envelope.Success("Statistics data successfully compiled.", map[string]any{
		"leases":   results[0].payload,
		"accounts": results[1].payload,
		"usage":    results[2].payload,
	})
}

func (h *Handler) listUsage(ctx context.Context) string {
	results := parallel(ctx,
		func(ctx context.Context) (any, error) { return h.dce.ListLeases(ctx, leaseListLimit) },
		func(ctx context.Context) (any, error) { return h.dce.ListUsage(ctx, usageListLimit) },
	)

	for _, r := range results {
		if r.err != nil {
			return envelope.Error("Error trying to retrieve usage data.", r.err.Error())
		}
	}
	if !validList(results[0]) || !validList(results[1]) {
		return envelope.Error("Failed to load usage data.", firstUpstreamMessage(results))
	}

	return envelope.Success("Usage data successfully loaded.", map[string]any{
		"leases": results[0].payload,
		"usage":  results[1].payload,
	})
}

// leaseRefs decodes the bulk-termination parameter into typed refs.
func leaseRefs(v any) ([]leaseRef, bool) {
	if v == nil {
		return nil, false
	}
	return dce.AsList[leaseRef](v)
}

// firstUpstreamMessage returns the first sub-response's message value, or
// nil when none carries one (the envelope then renders an empty errorObject).
func firstUpstreamMessage(results []fetchResult) any {
	for _, r := range results {
		if m, ok := envelope.UpstreamMessage(r.payload); ok {
			return m
		}
	}
	return nil
}

// errorText renders an upstream message value as error text.
func errorText(m any) string {
	if s, ok := m.(string); ok {
		return s
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "upstream error"
	}
	return string(b)
}
