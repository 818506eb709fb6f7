package users

import (
	"context"
	"errors"

	"github.com/eventsandbox/safe/batch"
	"github.com/eventsandbox/safe/directory"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/resolver"
)

var errUnknownAction = errors.New("unknown API action")

// defaultListLimit is the Cognito page-size ceiling.
const defaultListLimit = 60

func (h *Handler) listUsers(ctx context.Context, params resolver.Params) string {
	limit := int64(defaultListLimit)
	if n, ok := params.Int64("limit"); ok && n > 0 && n <= defaultListLimit {
		limit = n
	}
	token, _ := params.String("paginationToken")

	users, nextToken, err := h.directory.ListUsers(ctx, int32(limit), token)
	if err != nil {
		return envelope.Error("Error trying to load user list.", err.Error())
	}
	return envelope.Success("", map[string]any{
		"users":           users,
		"paginationToken": nextToken,
	})
}

func (h *Handler) listUsersInGroup(ctx context.Context, params resolver.Params) string {
	const msg = "Error trying to load user list."

	group, ok := params.String("groupname")
	if !ok {
		return envelope.Error(msg, "Parameter 'groupname' missing.")
	}
	if !h.config.KnownGroup(group) {
		return envelope.Error(msg, "Unknown user group '"+group+"'.")
	}
	limit := int64(defaultListLimit)
	if n, ok := params.Int64("limit"); ok && n > 0 && n <= defaultListLimit {
		limit = n
	}
	token, _ := params.String("nextToken")

	users, nextToken, err := h.directory.ListUsersInGroup(ctx, group, int32(limit), token)
	if err != nil {
		return envelope.Error(msg, err.Error())
	}
	return envelope.Success("", map[string]any{
		"users":     users,
		"nextToken": nextToken,
	})
}

func (h *Handler) createUser(ctx context.Context, params resolver.Params) string {
	email, ok := params.String("email")
	if !ok {
		return envelope.Error("Internal error while trying to create user.", "Parameter 'email' missing.")
	}

	user, err := h.directory.CreateUser(ctx, email)
	if errors.Is(err, directory.ErrUserExists) {
		return envelope.Error("User "+email+" already exists.", err.Error())
	}
	if err != nil {
		return envelope.Error("Failed to create user "+email+".", err.Error())
	}
	return envelope.Success("User "+email+" successfully created.", user)
}

func (h *Handler) deleteUser(ctx context.Context, params resolver.Params) string {
	username, ok := params.String("username")
	if !ok {
		return envelope.Error("Internal error while trying to delete user.", "Parameter 'username' missing.")
	}

	if err := h.directory.DeleteUser(ctx, username); err != nil {
		return envelope.Error("Failed to delete user "+username+".", err.Error())
	}
	return envelope.Success("User "+username+" successfully deleted.", map[string]any{})
}

func (h *Handler) deleteUsers(ctx context.Context, params resolver.Params) string {
	usernames, ok := params.StringSlice("usernames")
	if !ok || len(usernames) == 0 {
		return envelope.Error("Internal error while trying to delete users.", "Parameter 'usernames' missing.")
	}

	result := batch.Run(ctx, usernames, func(ctx context.Context, username string) error {
		return h.directory.DeleteUser(ctx, username)
	})

	summary := result.Summary("delete", "deleted", "user")
	failed := make([]map[string]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]string{
			"username": f.Item,
			"error":    f.Err.Error(),
		})
	}
	succeeded := result.Succeeded
	if succeeded == nil {
		succeeded = []string{}
	}
	body := map[string]any{"succeeded": succeeded, "failed": failed}

	if len(result.Failed) > 0 {
		return envelope.Error(summary, body)
	}
	return envelope.Success(summary, body)
}

// setGroupMembership grants or revokes one user's membership of a
// configured permission group.
func (h *Handler) setGroupMembership(ctx context.Context, params resolver.Params, grant bool) string {
	msg := "Internal error while trying to add user to group."
	if !grant {
		msg = "Internal error while trying to remove user from group."
	}

	username, ok := params.String("username")
	if !ok {
		return envelope.Error(msg, "Parameter 'username' missing.")
	}
	group, ok := params.String("groupname")
	if !ok {
		return envelope.Error(msg, "Parameter 'groupname' missing.")
	}
	if !h.config.KnownGroup(group) {
		return envelope.Error(msg, "Unknown user group '"+group+"'.")
	}

	if grant {
		if err := h.directory.AddUserToGroup(ctx, username, group); err != nil {
			return envelope.Error("Failed to add user "+username+" to group "+group+".", err.Error())
		}
		return envelope.Success("User "+username+" successfully added to group "+group+".", map[string]any{})
	}

	if err := h.directory.RemoveUserFromGroup(ctx, username, group); err != nil {
		return envelope.Error("Failed to remove user "+username+" from group "+group+".", err.Error())
	}
	return envelope.Success("User "+username+" successfully removed from group "+group+".", map[string]any{})
}
