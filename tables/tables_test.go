package tables

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
)

// mockDynamoDB implements the store interfaces with configurable behavior
// and call tracking.
type mockDynamoDB struct {
	ListTablesFunc func(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	GetItemFunc    func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItemFunc func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItemFunc func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)

	ListTablesCalls []*dynamodb.ListTablesInput
	GetItemCalls    []*dynamodb.GetItemInput
	UpdateItemCalls []*dynamodb.UpdateItemInput
	DeleteItemCalls []*dynamodb.DeleteItemInput
}

func (m *mockDynamoDB) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	m.ListTablesCalls = append(m.ListTablesCalls, params)
	if m.ListTablesFunc != nil {
		return m.ListTablesFunc(ctx, params, optFns...)
	}
	return &dynamodb.ListTablesOutput{}, nil
}

func (m *mockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.GetItemCalls = append(m.GetItemCalls, params)
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.UpdateItemCalls = append(m.UpdateItemCalls, params)
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.DeleteItemCalls = append(m.DeleteItemCalls, params)
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDiscoverTableName(t *testing.T) {
	t.Run("single match across pages", func(t *testing.T) {
		mock := &mockDynamoDB{
			ListTablesFunc: func(_ context.Context, params *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
				if params.ExclusiveStartTableName == nil {
					return &dynamodb.ListTablesOutput{
						TableNames:             []string{"Other-abc", "Unrelated"},
						LastEvaluatedTableName: aws.String("Unrelated"),
					}, nil
				}
				return &dynamodb.ListTablesOutput{
					TableNames: []string{"Event-x7k2-prod"},
				}, nil
			},
		}
		name, err := DiscoverTableName(context.Background(), mock, "Event-")
		if err != nil {
			t.Fatalf("DiscoverTableName: %v", err)
		}
		if name != "Event-x7k2-prod" {
			t.Errorf("name = %q", name)
		}
		if len(mock.ListTablesCalls) != 2 {
			t.Errorf("expected 2 pages listed, got %d", len(mock.ListTablesCalls))
		}
	})

	t.Run("zero matches fails fast", func(t *testing.T) {
		mock := &mockDynamoDB{
			ListTablesFunc: func(_ context.Context, _ *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
				return &dynamodb.ListTablesOutput{TableNames: []string{"Other"}}, nil
			},
		}
		_, err := DiscoverTableName(context.Background(), mock, "Event-")
		if !errors.Is(err, ErrTableNotFound) {
			t.Errorf("expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("multiple matches fails fast instead of picking first", func(t *testing.T) {
		mock := &mockDynamoDB{
			ListTablesFunc: func(_ context.Context, _ *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
				return &dynamodb.ListTablesOutput{TableNames: []string{"Event-a", "Event-b"}}, nil
			},
		}
		_, err := DiscoverTableName(context.Background(), mock, "Event-")
		if !errors.Is(err, ErrTableAmbiguous) {
			t.Errorf("expected ErrTableAmbiguous, got %v", err)
		}
	})
}

func TestEventsTable_GetEvent(t *testing.T) {
	t.Run("decodes event record", func(t *testing.T) {
		mock := &mockDynamoDB{
			GetItemFunc: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
					"id":          &types.AttributeValueMemberS{Value: "EVT1234567"},
					"eventName":   &types.AttributeValueMemberS{Value: "GameDay"},
					"eventOn":     &types.AttributeValueMemberN{Value: "1700000000"},
					"eventDays":   &types.AttributeValueMemberN{Value: "1"},
					"eventHours":  &types.AttributeValueMemberN{Value: "8"},
					"maxAccounts": &types.AttributeValueMemberN{Value: "5"},
					"eventBudget": &types.AttributeValueMemberN{Value: "10"},
					"eventStatus": &types.AttributeValueMemberS{Value: "Running"},
				}}, nil
			},
		}
		table := newEventsTableWithClient(mock, "Event-x")

		event, err := table.GetEvent(context.Background(), "EVT1234567")
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		want := &Event{
			ID: "EVT1234567", EventName: "GameDay", EventOn: 1700000000,
			EventDays: 1, EventHours: 8, MaxAccounts: 5, EventBudget: 10,
			EventStatus: EventStatusRunning,
		}
		if diff := cmp.Diff(want, event); diff != "" {
			t.Errorf("event mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing record is ErrEventNotFound", func(t *testing.T) {
		table := newEventsTableWithClient(&mockDynamoDB{}, "Event-x")
		_, err := table.GetEvent(context.Background(), "NOPE")
		if !errors.Is(err, ErrEventNotFound) {
			t.Errorf("expected ErrEventNotFound, got %v", err)
		}
	})
}

func TestEventExpiresOn(t *testing.T) {
	e := Event{EventOn: 1700000000, EventDays: 1, EventHours: 8}
	want := int64(1700000000 + 24*3600 + 8*3600)
	if got := e.ExpiresOn(); got != want {
		t.Errorf("ExpiresOn = %d, want %d", got, want)
	}
}

func TestAccountsTable_UpdateAccount(t *testing.T) {
	mock := &mockDynamoDB{
		UpdateItemFunc: func(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
				"AccountStatus": &types.AttributeValueMemberS{Value: "Ready"},
				"AdminRoleArn":  &types.AttributeValueMemberS{Value: "arn:aws:iam::111122223333:role/Admin"},
			}}, nil
		},
	}
	table := newAccountsTableWithClient(mock, "dce-accounts")

	updated, err := table.UpdateAccount(context.Background(), "111122223333", "Ready", "arn:aws:iam::111122223333:role/Admin")
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if updated["AccountStatus"] != "Ready" {
		t.Errorf("updated attributes = %v", updated)
	}

	call := mock.UpdateItemCalls[0]
	if key, ok := call.Key["Id"].(*types.AttributeValueMemberS); !ok || key.Value != "111122223333" {
		t.Errorf("key = %v", call.Key)
	}
	if call.ReturnValues != types.ReturnValueUpdatedNew {
		t.Errorf("ReturnValues = %v", call.ReturnValues)
	}
}

func TestLeasesTable(t *testing.T) {
	t.Run("update writes composite key and five attributes", func(t *testing.T) {
		mock := &mockDynamoDB{}
		table := newLeasesTableWithClient(mock, "dce-leases")

		_, err := table.UpdateLease(context.Background(), LeaseUpdate{
			AccountID:                "111122223333",
			PrincipalID:              "EVT1234567__a+b+x+com",
			LeaseStatus:              "Inactive",
			LeaseStatusReason:        "Destroyed",
			BudgetAmount:             10,
			ExpiresOn:                1700086400,
			BudgetNotificationEmails: []string{"a.b@x.com"},
		})
		if err != nil {
			t.Fatalf("UpdateLease: %v", err)
		}

		call := mock.UpdateItemCalls[0]
		if _, ok := call.Key["AccountId"]; !ok {
			t.Error("missing AccountId key")
		}
		if _, ok := call.Key["PrincipalId"]; !ok {
			t.Error("missing PrincipalId key")
		}
		if len(call.ExpressionAttributeValues) != 5 {
			t.Errorf("expected 5 attribute values, got %d", len(call.ExpressionAttributeValues))
		}
	})

	t.Run("delete uses composite key", func(t *testing.T) {
		mock := &mockDynamoDB{}
		table := newLeasesTableWithClient(mock, "dce-leases")

		if err := table.DeleteLease(context.Background(), "111122223333", "p1"); err != nil {
			t.Fatalf("DeleteLease: %v", err)
		}
		call := mock.DeleteItemCalls[0]
		if key, ok := call.Key["PrincipalId"].(*types.AttributeValueMemberS); !ok || key.Value != "p1" {
			t.Errorf("key = %v", call.Key)
		}
	})
}

func TestConfigTable_GetAppConfig(t *testing.T) {
	t.Run("merges saved record over defaults", func(t *testing.T) {
		mock := &mockDynamoDB{
			GetItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
					"id":     &types.AttributeValueMemberS{Value: "saved"},
					"config": &types.AttributeValueMemberS{Value: `{"BUDGET_CURRENCY":"EUR","EVENT_ID_LENGTH":12}`},
				}}, nil
			},
		}
		table := newConfigTableWithClient(mock, "Config-x")

		cfg, err := table.GetAppConfig(context.Background())
		if err != nil {
			t.Fatalf("GetAppConfig: %v", err)
		}
		if cfg.BudgetCurrency != "EUR" || cfg.EventIDLength != 12 {
			t.Errorf("saved values not applied: %+v", cfg)
		}
		if cfg.EventPrincipalSeparator != "__" {
			t.Errorf("defaults lost: %+v", cfg)
		}
	})

	t.Run("missing record falls back to defaults", func(t *testing.T) {
		table := newConfigTableWithClient(&mockDynamoDB{}, "Config-x")
		cfg, err := table.GetAppConfig(context.Background())
		if err != nil {
			t.Fatalf("GetAppConfig: %v", err)
		}
		if diff := cmp.Diff(DefaultAppConfig(), cfg); diff != "" {
			t.Errorf("expected defaults (-want +got):\n%s", diff)
		}
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		mock := &mockDynamoDB{
			GetItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return nil, errors.New("throttled")
			},
		}
		table := newConfigTableWithClient(mock, "Config-x")
		if _, err := table.GetAppConfig(context.Background()); err == nil {
			t.Error("expected error on transport failure")
		}
	})
}
