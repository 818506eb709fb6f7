package tables

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// leaseWriter holds the DynamoDB operations used by LeasesTable.
type leaseWriter interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// LeaseUpdate carries the five attributes the operator console may patch on
// a lease record.
type LeaseUpdate struct {
	AccountID                string
	PrincipalID              string
	LeaseStatus              string
	LeaseStatusReason        string
	BudgetAmount             float64
	ExpiresOn                int64
	BudgetNotificationEmails []string
}

// LeasesTable patches and deletes records in the DCE engine's own leases
// table, keyed by the composite (AccountId, PrincipalId).
//
// Like AccountsTable, this bypasses the engine and is exposed only as an
// explicitly "unsafe" manual-correction path.
type LeasesTable struct {
	client    leaseWriter
	tableName string
}

// NewLeasesTable creates a LeasesTable from an AWS config.
func NewLeasesTable(cfg aws.Config, tableName string) *LeasesTable {
	return &LeasesTable{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}
}

// newLeasesTableWithClient creates a LeasesTable with a custom client.
// Used by tests.
func newLeasesTableWithClient(client leaseWriter, tableName string) *LeasesTable {
	return &LeasesTable{client: client, tableName: tableName}
}

func leaseKey(accountID, principalID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"AccountId":   &types.AttributeValueMemberS{Value: accountID},
		"PrincipalId": &types.AttributeValueMemberS{Value: principalID},
	}
}

// UpdateLease overwrites the status, reason, budget, expiry and notification
// attributes of one lease record, returning the updated attribute values.
func (t *LeasesTable) UpdateLease(ctx context.Context, update LeaseUpdate) (map[string]any, error) {
	emails, err := attributevalue.Marshal(update.BudgetNotificationEmails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification emails: %w", err)
	}
	budget, err := attributevalue.Marshal(update.BudgetAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode budget amount: %w", err)
	}
	expires, err := attributevalue.Marshal(update.ExpiresOn)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expiry: %w", err)
	}

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(t.tableName),
		Key:              leaseKey(update.AccountID, update.PrincipalID),
		UpdateExpression: aws.String("set LeaseStatus = :s, LeaseStatusReason = :r, BudgetAmount = :b, ExpiresOn = :e, BudgetNotificationEmails = :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: update.LeaseStatus},
			":r": &types.AttributeValueMemberS{Value: update.LeaseStatusReason},
			":b": budget,
			":e": expires,
			":n": emails,
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update lease record for %s: %w", update.PrincipalID, err)
	}

	updated := make(map[string]any)
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to decode updated attributes for lease %s: %w", update.PrincipalID, err)
	}
	return updated, nil
}

// DeleteLease removes one lease record outright. The engine is not informed;
// this is for cleaning up records the engine itself has abandoned.
func (t *LeasesTable) DeleteLease(ctx context.Context, accountID, principalID string) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.tableName),
		Key:       leaseKey(accountID, principalID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete lease record for %s: %w", principalID, err)
	}
	return nil
}
