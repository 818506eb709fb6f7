package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// appConfigRecordID is the fixed record id the console writes its saved
// configuration under.
const appConfigRecordID = "saved"

// AppConfig is the console-managed configuration record. Field names mirror
// the console's own keys; the record is stored as a JSON string attribute.
// Only the fields this layer consumes are decoded.
type AppConfig struct {
	BudgetCurrency          string `json:"BUDGET_CURRENCY"`
	EventPrincipalSeparator string `json:"EVENT_PRINCIPAL_SEPARATOR"`
	EventEmailSubst         string `json:"EVENT_EMAIL_SUBST"`
	EventIDLength           int    `json:"EVENT_ID_LENGTH"`
	EventMaxDays            int    `json:"EVENT_MAX_DAYS"`
	EventMaxAccounts        int    `json:"EVENT_MAX_ACCOUNTS"`
	AccountMaxBudget        int    `json:"ACCOUNT_MAX_BUDGET"`
	AdminGroup              string `json:"ADMIN_GROUP"`
	OperatorGroup           string `json:"OPERATOR_GROUP"`
	UserListBatchSize       int    `json:"USER_LIST_BATCH_SIZE"`
}

// DefaultAppConfig returns the defaults used when no configuration record
// has been saved yet. Values match the console's initial state.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		BudgetCurrency:          "USD",
		EventPrincipalSeparator: "__",
		EventEmailSubst:         "+",
		EventIDLength:           10,
		EventMaxDays:            90,
		EventMaxAccounts:        50,
		AccountMaxBudget:        1000,
		AdminGroup:              "admin",
		OperatorGroup:           "operator",
		UserListBatchSize:       60,
	}
}

// SubstituteRune returns the email substitute as a rune, defaulting to '+'
// when the configured value is empty.
func (c AppConfig) SubstituteRune() rune {
	for _, r := range c.EventEmailSubst {
		return r
	}
	return '+'
}

// configGetter is the DynamoDB operation used by ConfigTable.
type configGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// ConfigTable reads the console's saved configuration record.
type ConfigTable struct {
	client    configGetter
	tableName string
}

// NewConfigTable creates a ConfigTable from an AWS config.
func NewConfigTable(cfg aws.Config, tableName string) *ConfigTable {
	return &ConfigTable{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
	}
}

// newConfigTableWithClient creates a ConfigTable with a custom client.
// Used by tests.
func newConfigTableWithClient(client configGetter, tableName string) *ConfigTable {
	return &ConfigTable{client: client, tableName: tableName}
}

// GetAppConfig fetches the saved configuration record, falling back to
// defaults when none exists. Transport failures are returned; a missing or
// unreadable record is not an error, matching the console's own behavior of
// warning and continuing with defaults.
func (t *ConfigTable) GetAppConfig(ctx context.Context) (AppConfig, error) {
	defaults := DefaultAppConfig()

	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: appConfigRecordID},
		},
	})
	if err != nil {
		return defaults, fmt.Errorf("failed to read configuration record: %w", err)
	}
	if len(out.Item) == 0 {
		log.Printf("WARN: no saved configuration record, using default settings")
		return defaults, nil
	}

	raw, ok := out.Item["config"].(*types.AttributeValueMemberS)
	if !ok {
		log.Printf("WARN: configuration record has no config attribute, using default settings")
		return defaults, nil
	}

	cfg := defaults
	if err := json.Unmarshal([]byte(raw.Value), &cfg); err != nil {
		log.Printf("WARN: malformed configuration record, using default settings: %v", err)
		return defaults, nil
	}
	return cfg, nil
}
