// Package login implements the end-user login API: it hands event attendees
// a console login URL for their leased AWS account, creating the lease on
// first login. Infrastructure identifiers (table names, pool IDs) are
// resolved exactly once at cold start and init fails when a prefix scan
// finds zero or multiple matches.
package login

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/eventsandbox/safe/dce"
	"github.com/eventsandbox/safe/directory"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/logging"
	"github.com/eventsandbox/safe/ratelimit"
	"github.com/eventsandbox/safe/resolver"
	"github.com/eventsandbox/safe/tables"
)

// Action is a login API action name.
type Action string

const (
	ActionGetEndUserEvent     Action = "getEndUserEvent"
	ActionGetLoginURLForEvent Action = "getAwsLoginUrlForEvent"
	ActionGetLoginURLForLease Action = "getAwsLoginUrlForLease"
)

func parseAction(name string) (Action, bool) {
	switch a := Action(name); a {
	case ActionGetEndUserEvent, ActionGetLoginURLForEvent, ActionGetLoginURLForLease:
		return a, true
	}
	return "", false
}

// Dispatch-level envelope messages. Argument validation and unrecognized
// actions use different texts; both are part of the console contract.
const (
	argsErrorMessage    = "Internal error while trying to execute lease task."
	unknownErrorMessage = "Internal error while trying to execute login task."
)

// dceInvoker is the subset of DCE operations the login API uses.
type dceInvoker interface {
	ListLeases(ctx context.Context, limit int) (any, error)
	CreateLease(ctx context.Context, input dce.CreateLeaseInput) (any, error)
	LeaseAuth(ctx context.Context, leaseID string) (any, error)
}

// eventStore reads event records.
type eventStore interface {
	GetEvent(ctx context.Context, id string) (*tables.Event, error)
}

// appConfigStore reads the saved console configuration.
type appConfigStore interface {
	GetAppConfig(ctx context.Context) (tables.AppConfig, error)
}

// emailResolver maps an authenticated username to its email address.
type emailResolver interface {
	ResolveEmail(ctx context.Context, username string) (string, error)
}

// Handler dispatches login API actions.
type Handler struct {
	dce       dceInvoker
	events    eventStore
	appConfig appConfigStore
	directory emailResolver
	limiter   ratelimit.RateLimiter
	logger    logging.Logger
}

// New wires a Handler from the environment. All infrastructure discovery
// happens here; a misconfigured deployment fails at cold start.
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

	dynClient := dynamodb.NewFromConfig(awsCfg)
	eventsTable, err := tables.DiscoverTableName(ctx, dynClient, cfg.EventsTablePrefix)
	if err != nil {
		return nil, err
	}
	configTable, err := tables.DiscoverTableName(ctx, dynClient, cfg.ConfigTablePrefix)
	if err != nil {
		return nil, err
	}
	log.Printf("discovered tables: events=%s config=%s", eventsTable, configTable)

	idpClient := cognitoidentityprovider.NewFromConfig(awsCfg)
	userPoolID, err := directory.DiscoverUserPoolID(ctx, idpClient, cfg.UserPoolPrefix)
	if err != nil {
		return nil, err
	}
	log.Printf("discovered user pool %s", userPoolID)

	if cfg.IdentityPoolPrefix != "" {
		identityPoolID, err := directory.DiscoverIdentityPoolID(ctx,
			cognitoidentity.NewFromConfig(awsCfg), cfg.IdentityPoolPrefix)
		if err != nil {
			return nil, err
		}
		log.Printf("discovered identity pool %s", identityPoolID)
	}

	limiter, err := ratelimit.NewMemoryRateLimiter(ratelimit.Config{
		RequestsPerWindow: cfg.RateLimit,
		Window:            cfg.RateWindow,
	})
	if err != nil {
		return nil, err
	}

	return &Handler{
		dce:       client,
		events:    tables.NewEventsTable(awsCfg, eventsTable),
		appConfig: tables.NewConfigTable(awsCfg, configTable),
		directory: directory.New(awsCfg, userPoolID),
		limiter:   limiter,
		logger:    logging.NewJSONLogger(os.Stdout),
	}, nil
}

// HandleRequest processes one resolver event and always returns an envelope
// string; errors never escape to the Lambda runtime.
func (h *Handler) HandleRequest(ctx context.Context, event resolver.Event) (string, error) {
	start := time.Now()

	args := event.Arguments
	if args == nil {
		return envelope.Error(argsErrorMessage, "Event arguments missing."), nil
	}
	if args.Action == "" {
		return envelope.Error(argsErrorMessage, "Parameter 'action' missing."), nil
	}

	entry := logging.NewActionLogEntry("login", args.Action, event.Username())

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
		return envelope.Error(unknownErrorMessage, "unknown API action '"+args.Action+"'"), nil
	}

	var response string
	switch action {
	case ActionGetEndUserEvent:
		response = h.getEndUserEvent(ctx, params)
	case ActionGetLoginURLForLease:
		response = h.getLoginURLForLease(ctx, params)
	case ActionGetLoginURLForEvent:
		response = h.getLoginURLForEvent(ctx, params, event.Username())
	}

	if ok, msg := envelope.Outcome(response); ok {
		entry.Settle(start, nil)
	} else {
		entry.Settle(start, errors.New(msg))
	}
	h.logger.LogAction(entry)
	return response, nil
}
