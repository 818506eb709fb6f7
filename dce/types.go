// Package dce is the client for the external Disposable Cloud Environment
// (DCE) leasing engine. The engine owns every account and lease record; this
// package only reads and mutates them over its signed HTTP API.
package dce

import "encoding/json"

// AccountStatus is the lifecycle state of a pooled account.
type AccountStatus string

const (
	AccountStatusReady    AccountStatus = "Ready"
	AccountStatusLeased   AccountStatus = "Leased"
	AccountStatusNotReady AccountStatus = "NotReady"
)

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseStatusActive   LeaseStatus = "Active"
	LeaseStatusInactive LeaseStatus = "Inactive"
)

// Lease status reasons reported by the engine.
const (
	LeaseReasonActive     = "Active"
	LeaseReasonExpired    = "Expired"
	LeaseReasonOverBudget = "OverBudget"
	LeaseReasonDestroyed  = "Destroyed"
	LeaseReasonRollback   = "Rollback"
)

// Account is a pooled AWS account as reported by the engine.
type Account struct {
	ID                  string        `json:"id"`
	AccountStatus       AccountStatus `json:"accountStatus"`
	AdminRoleArn        string        `json:"adminRoleArn"`
	PrincipalRoleArn    string        `json:"principalRoleArn,omitempty"`
	PrincipalPolicyHash string        `json:"principalPolicyHash,omitempty"`
	CreatedOn           int64         `json:"createdOn"`
	LastModifiedOn      int64         `json:"lastModifiedOn"`
}

// Lease is a time- and budget-bounded grant of one account to one principal.
// Timestamps are Unix epoch seconds, as emitted by the engine.
type Lease struct {
	ID                       string      `json:"id"`
	PrincipalID              string      `json:"principalId"`
	AccountID                string      `json:"accountId"`
	LeaseStatus              LeaseStatus `json:"leaseStatus"`
	LeaseStatusReason        string      `json:"leaseStatusReason"`
	BudgetAmount             float64     `json:"budgetAmount"`
	BudgetCurrency           string      `json:"budgetCurrency"`
	BudgetNotificationEmails []string    `json:"budgetNotificationEmails"`
	CreatedOn                int64       `json:"createdOn"`
	LastModifiedOn           int64       `json:"lastModifiedOn"`
	LeaseStatusModifiedOn    int64       `json:"leaseStatusModifiedOn"`
	ExpiresOn                int64       `json:"expiresOn"`
}

// UsageRecord is one cost record of one principal on one account over a
// start/end window.
type UsageRecord struct {
	PrincipalID  string  `json:"principalId"`
	AccountID    string  `json:"accountId"`
	StartDate    int64   `json:"startDate"`
	EndDate      int64   `json:"endDate"`
	CostAmount   float64 `json:"costAmount"`
	CostCurrency string  `json:"costCurrency,omitempty"`
	TimeToLive   int64   `json:"timeToLive,omitempty"`
}

// CreateLeaseInput is the body of POST /leases.
type CreateLeaseInput struct {
	PrincipalID              string   `json:"principalId"`
	BudgetAmount             float64  `json:"budgetAmount"`
	BudgetCurrency           string   `json:"budgetCurrency"`
	BudgetNotificationEmails []string `json:"budgetNotificationEmails"`
	ExpiresOn                int64    `json:"expiresOn"`
}

// AsList re-decodes an untyped upstream payload into a typed slice.
// Returns false when the payload is not a JSON array, which the shims treat
// as an upstream failure.
func AsList[T any](payload any) ([]T, bool) {
	arr, ok := payload.([]any)
	if !ok {
		return nil, false
	}
	b, err := json.Marshal(arr)
	if err != nil {
		return nil, false
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}

// As re-decodes an untyped upstream payload into a typed value.
func As[T any](payload any) (T, bool) {
	var out T
	b, err := json.Marshal(payload)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}
	return out, true
}
