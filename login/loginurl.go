package login

import (
	"context"
	"errors"
	"strings"

	"github.com/eventsandbox/safe/dce"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/principal"
	"github.com/eventsandbox/safe/resolver"
	"github.com/eventsandbox/safe/tables"
)

var errUnknownAction = errors.New("unknown API action")

// eventNotFoundMessage renders the end-user guidance for an unknown event ID.
func eventNotFoundMessage(id string) string {
	return `Could not find matching event for event ID "` + id +
		`". Please double check if your event ID is correct or ask your event operator for help.`
}

// loginGuidanceMessage is the end-user text for infrastructure failures
// during event login.
const loginGuidanceMessage = "Error during event login. Please ask your event operator for help."

// rateLimitMessage is returned when a user exceeds the login attempt limit.
const rateLimitMessage = "Too many login attempts. Please wait a moment and try again."

func (h *Handler) getEndUserEvent(ctx context.Context, params resolver.Params) string {
	id, ok := params.String("id")
	if !ok {
		return envelope.Error("Internal error while trying to log in.", "Parameter 'id' missing.")
	}

	event, err := h.events.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, tables.ErrEventNotFound) {
			return envelope.Error(eventNotFoundMessage(id), nil)
		}
		return envelope.Error(loginGuidanceMessage, err.Error())
	}

	// Attendees only get the narrow projection, not budgets or owner data.
	return envelope.Success("", map[string]any{
		"id":          event.ID,
		"eventStatus": event.EventStatus,
		"eventName":   event.EventName,
	})
}

func (h *Handler) getLoginURLForLease(ctx context.Context, params resolver.Params) string {
	id, ok := params.String("id")
	if !ok {
		return envelope.Error("Internal error while trying to log in.", "Parameter 'id' missing.")
	}

	url, errObj, err := h.leaseConsoleURL(ctx, id)
	if err != nil {
		return envelope.Error("Failed to provide login URL for lease "+id+".", errObj)
	}
	return envelope.Success("Successfully created login URL for lease "+id+".", url)
}

func (h *Handler) getLoginURLForEvent(ctx context.Context, params resolver.Params, username string) string {
	eventID, ok := params.String("eventId")
	if !ok {
		return envelope.Error("Internal error while trying to log in.", "Parameter 'eventId' missing.")
	}
	if username == "" {
		return envelope.Error("Internal error while trying to log in.", "Parameter 'user' missing.")
	}

	// The limit key is derivable without any outbound call, so throttled
	// users cost nothing downstream.
	allowed, _, err := h.limiter.Allow(ctx, eventID+"#"+username)
	if err != nil || !allowed {
		return envelope.Error(rateLimitMessage, nil)
	}

	email, err := h.directory.ResolveEmail(ctx, username)
	if err != nil {
		return envelope.Error(loginGuidanceMessage, err.Error())
	}

	appCfg, err := h.appConfig.GetAppConfig(ctx)
	if err != nil {
		return envelope.Error(loginGuidanceMessage, err.Error())
	}
	principalID := principal.Derive(eventID, email, appCfg.EventPrincipalSeparator, appCfg.SubstituteRune())

	event, err := h.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, tables.ErrEventNotFound) {
			return envelope.Error(eventNotFoundMessage(eventID), nil)
		}
		return envelope.Error(loginGuidanceMessage, err.Error())
	}

	payload, err := h.dce.ListLeases(ctx, 0)
	if err != nil {
		return envelope.Error("Failed to list leases.", err.Error())
	}
	if msg, ok := envelope.UpstreamMessage(payload); ok {
		return envelope.Error("Failed to list leases.", msg)
	}
	leases, ok := dce.AsList[dce.Lease](payload)
	if !ok {
		return envelope.Error("Failed to list leases.", payload)
	}

	if found := findLease(leases, principalID); found != nil {
		switch string(found.LeaseStatus) {
		case "Active":
			return h.assignedLeaseLoginURL(ctx, found.ID, email)
		case "Expired":
			return envelope.Error("Your AWS account has expired its lifetime and has been terminated now.", nil)
		case "OverBudget":
			return envelope.Error("Your AWS account has reached its maximum budget and has been terminated now.", nil)
		case "Inactive":
			return envelope.Error("Your AWS account has been manually terminated.", nil)
		default:
			return envelope.Error("Your account is not available for logging in.", nil)
		}
	}

	if countEventLeases(leases, eventID) >= event.MaxAccounts {
		return envelope.Error("No more free AWS accounts available for this event.", nil)
	}

	// Two concurrent first logins can both reach this point; the engine's
	// AlreadyExistsError is the de-duplication backstop.
	created, err := h.dce.CreateLease(ctx, dce.CreateLeaseInput{
		PrincipalID:              principalID,
		BudgetAmount:             event.EventBudget,
		BudgetCurrency:           appCfg.BudgetCurrency,
		BudgetNotificationEmails: []string{email},
		ExpiresOn:                event.ExpiresOn(),
	})
	if err != nil {
		return envelope.Error("Failed to create lease for "+email+".", err.Error())
	}
	if code, message, detail, ok := envelope.UpstreamError(created); ok {
		return envelope.Error(envelope.LeaseCreateErrorMessage(code, message, email), detail)
	}

	lease, ok := dce.As[dce.Lease](created)
	if !ok || lease.ID == "" {
		return envelope.Error("Failed to create lease for "+email+".", created)
	}
	return h.assignedLeaseLoginURL(ctx, lease.ID, email)
}

// assignedLeaseLoginURL fetches the console URL for a lease the user was
// just matched to or granted.
func (h *Handler) assignedLeaseLoginURL(ctx context.Context, leaseID, user string) string {
	url, errObj, err := h.leaseConsoleURL(ctx, leaseID)
	if err != nil {
		return envelope.Error("Failed to provide login URL for lease "+leaseID+" for user "+user+".", errObj)
	}
	return envelope.Success("Assigned lease "+leaseID+" for user "+user+". Successfully created login URL.", url)
}

// leaseConsoleURL fetches the federated console URL for a lease. A response
// without a consoleUrl field is treated as an error carrying the whole
// upstream payload so the caller's formatter can report its detail.
func (h *Handler) leaseConsoleURL(ctx context.Context, leaseID string) (string, any, error) {
	payload, err := h.dce.LeaseAuth(ctx, leaseID)
	if err != nil {
		return "", err.Error(), err
	}
	obj, _ := payload.(map[string]any)
	url, _ := obj["consoleUrl"].(string)
	if url == "" {
		return "", payload, errors.New("missing consoleUrl in auth response")
	}
	// The engine double-escapes the first query separator, leaving the
	// literal six-character sequence & in the URL text.
	return strings.Replace(url, `\u0026`, "?", 1), nil, nil
}

func findLease(leases []dce.Lease, principalID string) *dce.Lease {
	for i := range leases {
		if leases[i].PrincipalID == principalID {
			return &leases[i]
		}
	}
	return nil
}

// countEventLeases counts leases belonging to an event by principal prefix.
func countEventLeases(leases []dce.Lease, eventID string) int {
	n := 0
	for _, l := range leases {
		if principal.HasEventPrefix(l.PrincipalID, eventID) {
			n++
		}
	}
	return n
}
