// Package testutil provides hand-written mocks for the AWS and DCE clients
// used across the API handler tests.
package testutil

import (
	"context"
	"sync"

	"github.com/eventsandbox/safe/dce"
)

// MockDCE implements the typed DCE operations with configurable Func fields.
// Calls records method names in invocation order; unset Funcs return an
// empty success payload. Safe for concurrent use so bulk fan-out tests can
// assert on it.
type MockDCE struct {
	ListAccountsFunc    func(ctx context.Context) (any, error)
	RegisterAccountFunc func(ctx context.Context, id, adminRoleArn string) (any, error)
	RemoveAccountFunc   func(ctx context.Context, id string) (any, error)
	ListLeasesFunc      func(ctx context.Context, limit int) (any, error)
	ListUsageFunc       func(ctx context.Context, limit int) (any, error)
	CreateLeaseFunc     func(ctx context.Context, input dce.CreateLeaseInput) (any, error)
	TerminateLeaseFunc  func(ctx context.Context, principalID, accountID string) (any, error)
	LeaseAuthFunc       func(ctx context.Context, leaseID string) (any, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockDCE) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
}

// CallCount returns how many recorded calls match name.
func (m *MockDCE) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockDCE) ListAccounts(ctx context.Context) (any, error) {
	m.record("ListAccounts")
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx)
	}
	return []any{}, nil
}

func (m *MockDCE) RegisterAccount(ctx context.Context, id, adminRoleArn string) (any, error) {
	m.record("RegisterAccount")
	if m.RegisterAccountFunc != nil {
		return m.RegisterAccountFunc(ctx, id, adminRoleArn)
	}
	return map[string]any{}, nil
}

func (m *MockDCE) RemoveAccount(ctx context.Context, id string) (any, error) {
	m.record("RemoveAccount")
	if m.RemoveAccountFunc != nil {
		return m.RemoveAccountFunc(ctx, id)
	}
	return map[string]any{}, nil
}

func (m *MockDCE) ListLeases(ctx context.Context, limit int) (any, error) {
	m.record("ListLeases")
	if m.ListLeasesFunc != nil {
		return m.ListLeasesFunc(ctx, limit)
	}
	return []any{}, nil
}

func (m *MockDCE) ListUsage(ctx context.Context, limit int) (any, error) {
	m.record("ListUsage")
	if m.ListUsageFunc != nil {
		return m.ListUsageFunc(ctx, limit)
	}
	return []any{}, nil
}

func (m *MockDCE) CreateLease(ctx context.Context, input dce.CreateLeaseInput) (any, error) {
	m.record("CreateLease")
	if m.CreateLeaseFunc != nil {
		return m.CreateLeaseFunc(ctx, input)
	}
	return map[string]any{}, nil
}

func (m *MockDCE) TerminateLease(ctx context.Context, principalID, accountID string) (any, error) {
	m.record("TerminateLease")
	if m.TerminateLeaseFunc != nil {
		return m.TerminateLeaseFunc(ctx, principalID, accountID)
	}
	return map[string]any{}, nil
}

func (m *MockDCE) LeaseAuth(ctx context.Context, leaseID string) (any, error) {
	m.record("LeaseAuth")
	if m.LeaseAuthFunc != nil {
		return m.LeaseAuthFunc(ctx, leaseID)
	}
	return map[string]any{}, nil
}
