// Package users implements the user-administration API backing the console's
// user table: Cognito user listing, invitation, deletion and permission
// group membership.
package users

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"

	"github.com/eventsandbox/safe/directory"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/logging"
	"github.com/eventsandbox/safe/resolver"
)

// Action is a users API action name.
type Action string

const (
	ActionListUsers           Action = "listUsers"
	ActionListUsersInGroup    Action = "listUsersInGroup"
	ActionCreateUser          Action = "createUser"
	ActionDeleteUser          Action = "deleteUser"
	ActionDeleteUsers         Action = "deleteUsers"
	ActionAddUserToGroup      Action = "addUserToGroup"
	ActionRemoveUserFromGroup Action = "removeUserFromGroup"
)

func parseAction(name string) (Action, bool) {
	switch a := Action(name); a {
	case ActionListUsers, ActionListUsersInGroup, ActionCreateUser,
		ActionDeleteUser, ActionDeleteUsers,
		ActionAddUserToGroup, ActionRemoveUserFromGroup:
		return a, true
	}
	return "", false
}

// genericErrorMessage is the catch-all envelope message for dispatch-level
// failures. The text is part of the console contract.
const genericErrorMessage = "Internal error while trying to execute user task."

// userDirectory is the subset of directory operations the users API uses.
type userDirectory interface {
	ListUsers(ctx context.Context, limit int32, paginationToken string) ([]directory.User, string, error)
	ListUsersInGroup(ctx context.Context, groupName string, limit int32, nextToken string) ([]directory.User, string, error)
	CreateUser(ctx context.Context, email string) (*directory.User, error)
	DeleteUser(ctx context.Context, username string) error
	AddUserToGroup(ctx context.Context, username, groupName string) error
	RemoveUserFromGroup(ctx context.Context, username, groupName string) error
}

// Handler dispatches users API actions.
type Handler struct {
	directory userDirectory
	config    Config
	logger    logging.Logger
}

// New wires a Handler from the environment. User pool discovery happens
// here; a misconfigured deployment fails at cold start.
func New(ctx context.Context) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	awsCfg.Region = cfg.Region

	idpClient := cognitoidentityprovider.NewFromConfig(awsCfg)
	userPoolID, err := directory.DiscoverUserPoolID(ctx, idpClient, cfg.UserPoolPrefix)
	if err != nil {
		return nil, err
	}
	log.Printf("discovered user pool %s", userPoolID)

	return &Handler{
		directory: directory.New(awsCfg, userPoolID),
		config:    cfg,
		logger:    logging.NewJSONLogger(os.Stdout),
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

	entry := logging.NewActionLogEntry("users", args.Action, event.Username())

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
	case ActionListUsers:
		response = h.listUsers(ctx, params)
	case ActionListUsersInGroup:
		response = h.listUsersInGroup(ctx, params)
	case ActionCreateUser:
		response = h.createUser(ctx, params)
	case ActionDeleteUser:
		response = h.deleteUser(ctx, params)
	case ActionDeleteUsers:
		response = h.deleteUsers(ctx, params)
	case ActionAddUserToGroup:
		response = h.setGroupMembership(ctx, params, true)
	case ActionRemoveUserFromGroup:
		response = h.setGroupMembership(ctx, params, false)
	}

	if ok, msg := envelope.Outcome(response); ok {
		entry.Settle(start, nil)
	} else {
		entry.Settle(start, errors.New(msg))
	}
	h.logger.LogAction(entry)
	return response, nil
}
