package tables

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EventStatus is the operator-controlled lifecycle state of an event.
type EventStatus string

const (
	EventStatusWaiting    EventStatus = "Waiting"
	EventStatusRunning    EventStatus = "Running"
	EventStatusTerminated EventStatus = "Terminated"
)

// ErrEventNotFound indicates no event record exists for the given id.
var ErrEventNotFound = errors.New("event not found")

// Event is the console's event record. Timestamps are Unix epoch seconds.
type Event struct {
	ID          string      `dynamodbav:"id" json:"id"`
	EventName   string      `dynamodbav:"eventName" json:"eventName"`
	EventOn     int64       `dynamodbav:"eventOn" json:"eventOn"`
	EventDays   int         `dynamodbav:"eventDays" json:"eventDays"`
	EventHours  int         `dynamodbav:"eventHours" json:"eventHours"`
	EventOwner  string      `dynamodbav:"eventOwner" json:"eventOwner"`
	MaxAccounts int         `dynamodbav:"maxAccounts" json:"maxAccounts"`
	EventBudget float64     `dynamodbav:"eventBudget" json:"eventBudget"`
	EventStatus EventStatus `dynamodbav:"eventStatus" json:"eventStatus"`
}

// ExpiresOn computes the lease expiry for the event: start time plus the
// configured days and hours, as epoch seconds.
func (e Event) ExpiresOn() int64 {
	return e.EventOn + int64(e.EventDays)*24*3600 + int64(e.EventHours)*3600
}

// eventGetter is the DynamoDB operation used by EventsTable.
type eventGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// EventsTable reads event records from the console's event table. This layer
// never writes events; the console maintains them through its own API.
type EventsTable struct {
	client    eventGetter
	tableName string
}

// NewEventsTable creates an EventsTable from an AWS config.
func NewEventsTable(cfg aws.Config, tableName string) *EventsTable {
	return &EventsTable{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}
}

// newEventsTableWithClient creates an EventsTable with a custom client.
// Used by tests.
func newEventsTableWithClient(client eventGetter, tableName string) *EventsTable {
	return &EventsTable{client: client, tableName: tableName}
}

// GetEvent fetches one event by id. Returns ErrEventNotFound when no record
// exists, distinguishable from transport failures.
func (t *EventsTable) GetEvent(ctx context.Context, id string) (*Event, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read event %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}

	var event Event
	if err := attributevalue.UnmarshalMap(out.Item, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", id, err)
	}
	return &event, nil
}
