// Package operator implements the lease-management API backing the event
// operator console: lease lifecycle against the DCE engine, usage and
// statistics fan-outs, and the explicitly unsafe direct-table corrections.
package operator

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/eventsandbox/safe/dce"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/logging"
	"github.com/eventsandbox/safe/resolver"
	"github.com/eventsandbox/safe/tables"
)

// Action is an operator API action name.
type Action string

const (
	ActionListLeases      Action = "listLeases"
	ActionCreateLease     Action = "createLease"
	ActionUpdateLease     Action = "updateLease"
	ActionTerminateLease  Action = "terminateLease"
	ActionTerminateLeases Action = "terminateLeases"
	ActionDeleteLease     Action = "deleteLease"
	ActionGetStatistics   Action = "getStatistics"
	ActionListUsage       Action = "listUsage"
)

func parseAction(name string) (Action, bool) {
	switch a := Action(name); a {
	case ActionListLeases, ActionCreateLease, ActionUpdateLease,
		ActionTerminateLease, ActionTerminateLeases, ActionDeleteLease,
		ActionGetStatistics, ActionListUsage:
		return a, true
	}
	return "", false
}

// genericErrorMessage is the catch-all envelope message for dispatch-level
// failures. The text is part of the console contract.
const genericErrorMessage = "Internal error while trying to execute task."

// dceInvoker is the subset of DCE operations the operator API uses.
type dceInvoker interface {
	ListAccounts(ctx context.Context) (any, error)
	ListLeases(ctx context.Context, limit int) (any, error)
	ListUsage(ctx context.Context, limit int) (any, error)
	CreateLease(ctx context.Context, input dce.CreateLeaseInput) (any, error)
	TerminateLease(ctx context.Context, principalID, accountID string) (any, error)
}

// leaseStore is the direct-table escape hatch.
type leaseStore interface {
	UpdateLease(ctx context.Context, update tables.LeaseUpdate) (map[string]any, error)
	DeleteLease(ctx context.Context, accountID, principalID string) error
}

// Handler dispatches operator API actions.
type Handler struct {
	dce    dceInvoker
	leases leaseStore
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
		dce:    client,
		leases: tables.NewLeasesTable(awsCfg, cfg.LeasesTable),
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

	entry := logging.NewActionLogEntry("operator", args.Action, event.Username())

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
	case ActionListLeases:
		response = h.listLeases(ctx)
	case ActionCreateLease:
		response = h.createLease(ctx, params)
	case ActionUpdateLease:
		response = h.updateLease(ctx, params)
	case ActionTerminateLease:
		response = h.terminateLease(ctx, params)
	case ActionTerminateLeases:
		response = h.terminateLeases(ctx, params)
	case ActionDeleteLease:
		response = h.deleteLease(ctx, params)
	case ActionGetStatistics:
		response = h.getStatistics(ctx)
	case ActionListUsage:
		response = h.listUsage(ctx)
	}

	if ok, msg := envelope.Outcome(response); ok {
		entry.Settle(start, nil)
	} else {
		entry.Settle(start, errors.New(msg))
	}
	h.logger.LogAction(entry)
	return response, nil
}
