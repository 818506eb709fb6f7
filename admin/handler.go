// Package admin implements the account-management API backing the event
// operator console. Each invocation dispatches one action against the DCE
// leasing engine or, for the explicitly unsafe update path, directly against
// the engine's accounts table.
package admin

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/eventsandbox/safe/dce"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/logging"
	"github.com/eventsandbox/safe/resolver"
	"github.com/eventsandbox/safe/tables"
)

// Action is an admin API action name.
type Action string

const (
	ActionListAccounts     Action = "listAccounts"
	ActionRegisterAccount  Action = "registerAccount"
	ActionRegisterAccounts Action = "registerAccounts"
	ActionUpdateAccount    Action = "updateAccount"
	ActionRemoveAccount    Action = "removeAccount"
	ActionRemoveAccounts   Action = "removeAccounts"
)

// parseAction maps a wire action name onto the closed action set.
func parseAction(name string) (Action, bool) {
	switch a := Action(name); a {
	case ActionListAccounts, ActionRegisterAccount, ActionRegisterAccounts,
		ActionUpdateAccount, ActionRemoveAccount, ActionRemoveAccounts:
		return a, true
	}
	return "", false
}

// genericErrorMessage is the catch-all envelope message for dispatch-level
// failures. The text is part of the console contract.
const genericErrorMessage = "Internal error while trying to execute account task."

// dceInvoker is the subset of DCE operations the admin API uses.
type dceInvoker interface {
	ListAccounts(ctx context.Context) (any, error)
	RegisterAccount(ctx context.Context, id, adminRoleArn string) (any, error)
	RemoveAccount(ctx context.Context, id string) (any, error)
}

// accountStore is the direct-table escape hatch.
type accountStore interface {
	UpdateAccount(ctx context.Context, id, accountStatus, adminRoleArn string) (map[string]any, error)
}

// stsAPI is the STS operation used to test-drive a candidate admin role.
type stsAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// iamAPI is the pair of IAM reads performed inside the assumed role.
type iamAPI interface {
	ListAttachedRolePolicies(ctx context.Context, params *iam.ListAttachedRolePoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error)
	ListAccountAliases(ctx context.Context, params *iam.ListAccountAliasesInput, optFns ...func(*iam.Options)) (*iam.ListAccountAliasesOutput, error)
}

// Handler dispatches admin API actions.
type Handler struct {
	dce      dceInvoker
	accounts accountStore
	sts      stsAPI

	// newIAMClient builds an IAM client on the assumed role's credentials.
	newIAMClient func(aws.Credentials) iamAPI

	logger logging.Logger
}

// New wires a Handler from the environment. Called once per cold start.
func New(ctx context.Context) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfigFromEnv(ctx, ssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	awsCfg.Region = cfg.Region

	client, err := dce.NewClient(awsCfg, cfg.DCEAPIURL)
	if err != nil {
		return nil, err
	}

	return &Handler{
		dce:      client,
		accounts: tables.NewAccountsTable(awsCfg, cfg.AccountsTable),
		sts:      sts.NewFromConfig(awsCfg),
		newIAMClient: func(creds aws.Credentials) iamAPI {
			iamCfg := awsCfg.Copy()
			iamCfg.Credentials = credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
			return iam.NewFromConfig(iamCfg)
		},
		logger: logging.NewJSONLogger(os.Stdout),
	}, nil
}

// HandleRequest processes one resolver event and always returns an envelope
// string; errors never escape to the Lambda runtime.
func (h *Handler) HandleRequest(ctx context.Context, event resolver.Event) (string, error) {
	start := time.Now()

	args := event.Arguments
	if args == nil {
		return envelope.Error(genericErrorMessage, "Event arguments missing."), nil
	}
	if args.Action == "" {
		return envelope.Error(genericErrorMessage, "Parameter 'action' missing."), nil
	}

	entry := logging.NewActionLogEntry("admin", args.Action, event.Username())

	params, err := resolver.ParseParams(args.ParamJSON)
	if err != nil {
		entry.Settle(start, err)
		h.logger.LogAction(entry)
		return envelope.Error("'paramJson' contains malformed JSON string.", nil), nil
	}

	action, known := parseAction(args.Action)
	if !known {
		log.Printf("unknown API action '%s'", args.Action)
		entry.Settle(start, errUnknownAction)
		h.logger.LogAction(entry)
		return envelope.Error(genericErrorMessage, "unknown API action '"+args.Action+"'"), nil
	}

	var response string
	switch action {
	case ActionListAccounts:
		response = h.listAccounts(ctx)
	case ActionRegisterAccount:
		response = h.registerAccount(ctx, params)
	case ActionRegisterAccounts:
		response = h.registerAccounts(ctx, params)
	case ActionUpdateAccount:
		response = h.updateAccount(ctx, params)
	case ActionRemoveAccount:
		response = h.removeAccount(ctx, params)
	case ActionRemoveAccounts:
		response = h.removeAccounts(ctx, params)
	}

	if ok, msg := envelope.Outcome(response); ok {
		entry.Settle(start, nil)
	} else {
		entry.Settle(start, errors.New(msg))
	}
	h.logger.LogAction(entry)
	return response, nil
}

// masterAccountID extracts the deployment's own account ID from the invoked
// function ARN (arn:aws:lambda:region:ACCOUNT:function:name).
func masterAccountID(ctx context.Context) string {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return ""
	}
	parts := strings.Split(lc.InvokedFunctionArn, ":")
	if len(parts) < 5 {
		return ""
	}
	return parts[4]
}
