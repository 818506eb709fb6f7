package tables

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// accountUpdater is the DynamoDB operation used by AccountsTable.
type accountUpdater interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// AccountsTable patches records in the DCE engine's own accounts table.
//
// This is the one path that bypasses the engine's API and writes its storage
// directly. It exists as a manual-correction escape hatch and can
// desynchronize engine-internal state; callers expose it as an explicitly
// "unsafe" operation.
type AccountsTable struct {
	client    accountUpdater
	tableName string
}

// NewAccountsTable creates an AccountsTable from an AWS config.
func NewAccountsTable(cfg aws.Config, tableName string) *AccountsTable {
	return &AccountsTable{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}
}

// newAccountsTableWithClient creates an AccountsTable with a custom client.
// Used by tests.
func newAccountsTableWithClient(client accountUpdater, tableName string) *AccountsTable {
	return &AccountsTable{client: client, tableName: tableName}
}

// UpdateAccount overwrites the AccountStatus and AdminRoleArn attributes of
// the record keyed by id, returning the updated attribute values.
func (t *AccountsTable) UpdateAccount(ctx context.Context, id, accountStatus, adminRoleArn string) (map[string]any, error) {
	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			"Id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression: aws.String("set AccountStatus = :s, AdminRoleArn = :r"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: accountStatus},
			":r": &types.AttributeValueMemberS{Value: adminRoleArn},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update account record %s: %w", id, err)
	}

	updated := make(map[string]any)
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, fmt.Errorf("failed to decode updated attributes for account %s: %w", id, err)
	}
	return updated, nil
}
