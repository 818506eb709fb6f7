package admin

import (
	"context"
	"errors"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/eventsandbox/safe/batch"
	"github.com/eventsandbox/safe/envelope"
	"github.com/eventsandbox/safe/resolver"
)

// testSessionName is the session name used when test-assuming a candidate
// admin role during registration.
const testSessionName = "testAdminLogin"

// adminPolicyName is the managed policy a candidate admin role must carry.
const adminPolicyName = "AdministratorAccess"

var errUnknownAction = errors.New("unknown API action")

// stepError carries the step-specific envelope message for a registration
// failure plus the detail to surface as the errorObject.
type stepError struct {
	message string
	detail  any
}

func (e *stepError) Error() string { return e.message }

func (h *Handler) listAccounts(ctx context.Context) string {
	masterID := masterAccountID(ctx)

	payload, err := h.dce.ListAccounts(ctx)
	if err != nil {
		return envelope.Error("Failed to list accounts.", err.Error())
	}
	if msg, ok := envelope.UpstreamMessage(payload); ok {
		return envelope.Error("Failed to list accounts.", msg)
	}
	return envelope.Success("", map[string]any{
		"accounts":        payload,
		"masterAccountId": masterID,
	})
}

func (h *Handler) registerAccount(ctx context.Context, params resolver.Params) string {
	roleName, ok := params.String("roleName")
	if !ok {
		return envelope.Error("Internal error while trying to register account.", "Parameter 'roleName' missing.")
	}
	id, ok := params.String("id")
	if !ok {
		return envelope.Error("Internal error while trying to register account.", "Parameter 'id' missing.")
	}

	payload, err := h.registerOne(ctx, id, roleName)
	if err != nil {
		var step *stepError
		if errors.As(err, &step) {
			return envelope.Error(step.message, step.detail)
		}
		return envelope.Error("Failed to register account "+id+".", err.Error())
	}
	return envelope.Success("Account "+id+" successfully registered.", payload)
}

// registerOne runs the full registration sequence for a single account:
// assume the candidate role, require the AdministratorAccess policy, require
// an account alias, then register with the engine. Each step gates the next;
// nothing is persisted before the final engine call.
func (h *Handler) registerOne(ctx context.Context, id, roleName string) (any, error) {
	roleArn := "arn:aws:iam::" + id + ":role/" + roleName

	assumed, err := h.sts.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(testSessionName),
		DurationSeconds: aws.Int32(900),
	})
	if err != nil {
		return nil, &stepError{
			message: "Error trying to assume IAM role " + roleName + " in account " + id + ".",
			detail:  err.Error(),
		}
	}

	iamClient := h.newIAMClient(aws.Credentials{
		AccessKeyID:     aws.ToString(assumed.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(assumed.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(assumed.Credentials.SessionToken),
	})

	policies, err := iamClient.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		return nil, &stepError{
			message: "Error trying to list attached IAM policies for role " + roleName + " in account " + id + ".",
			detail:  err.Error(),
		}
	}
	if !hasPolicy(policies, adminPolicyName) {
		return nil, &stepError{
			message: "No '" + adminPolicyName + "' policy attached to role " + roleName + " in account " + id + ".",
		}
	}

	// An unaliased account cannot later be safely identified as ours.
	aliases, err := iamClient.ListAccountAliases(ctx, &iam.ListAccountAliasesInput{})
	if err != nil {
		return nil, &stepError{
			message: "Error trying to list account aliases for account " + id + ".",
			detail:  err.Error(),
		}
	}
	if len(aliases.AccountAliases) == 0 {
		return nil, &stepError{message: "No account alias found for account " + id + "."}
	}

	payload, err := h.dce.RegisterAccount(ctx, id, roleArn)
	if err != nil {
		return nil, &stepError{
			message: "Failed to register account " + id + ".",
			detail:  err.Error(),
		}
	}
	if msg, ok := envelope.UpstreamMessage(payload); ok {
		return nil, &stepError{
			message: "Failed to register account " + id + ".",
			detail:  msg,
		}
	}
	return payload, nil
}

func hasPolicy(policies *iam.ListAttachedRolePoliciesOutput, name string) bool {
	for _, p := range policies.AttachedPolicies {
		if aws.ToString(p.PolicyName) == name {
			return true
		}
	}
	return false
}

func (h *Handler) updateAccount(ctx context.Context, params resolver.Params) string {
	id, ok := params.String("id")
	if !ok {
		return envelope.Error("Internal error while trying to update account.", "Parameter 'id' missing.")
	}
	accountStatus, ok := params.String("accountStatus")
	if !ok {
		return envelope.Error("Internal error while trying to update account.", "Parameter 'accountStatus' missing.")
	}
	adminRoleArn, ok := params.String("adminRoleArn")
	if !ok {
		return envelope.Error("Internal error while trying to update account.", "Parameter 'adminRoleArn' missing.")
	}

	attrs, err := h.accounts.UpdateAccount(ctx, id, accountStatus, adminRoleArn)
	if err != nil {
		return envelope.Error("Error trying to update DynamoDB table record for account "+id+".", err.Error())
	}
	return envelope.Success("DynamoDB table record for account "+id+" successfully updated.",
		map[string]any{"Attributes": attrs})
}

func (h *Handler) removeAccount(ctx context.Context, params resolver.Params) string {
	id, ok := params.String("id")
	if !ok {
		return envelope.Error("Internal error while trying to remove account.", "Parameter 'id' missing.")
	}

	payload, err := h.dce.RemoveAccount(ctx, id)
	if err != nil {
		return envelope.Error("Failed to remove account "+id+".", err.Error())
	}
	if _, message, _, ok := envelope.UpstreamError(payload); ok {
		return envelope.Error("Failed to remove account "+id+".", message)
	}
	return envelope.Success("Account "+id+" successfully removed.", payload)
}

func (h *Handler) removeAccounts(ctx context.Context, params resolver.Params) string {
	ids, ok := params.StringSlice("ids")
	if !ok || len(ids) == 0 {
		return envelope.Error("Internal error while trying to remove accounts.", "Parameter 'ids' missing.")
	}

	result := batch.Run(ctx, ids, func(ctx context.Context, id string) error {
		payload, err := h.dce.RemoveAccount(ctx, id)
		if err != nil {
			return err
		}
		if _, message, _, ok := envelope.UpstreamError(payload); ok {
			return errors.New(message)
		}
		return nil
	})

	summary := result.Summary("remove", "removed", "account")
	body := bulkBody(result)
	if len(result.Failed) > 0 {
		return envelope.Error(summary, body)
	}
	return envelope.Success(summary, body)
}

func (h *Handler) registerAccounts(ctx context.Context, params resolver.Params) string {
	roleName, ok := params.String("roleName")
	if !ok {
		return envelope.Error("Internal error while trying to register accounts.", "Parameter 'roleName' missing.")
	}
	ids, ok := params.StringSlice("accountIds")
	if !ok || len(ids) == 0 {
		return envelope.Error("Internal error while trying to register accounts.", "Parameter 'accountIds' missing.")
	}

	result := batch.Run(ctx, ids, func(ctx context.Context, id string) error {
		_, err := h.registerOne(ctx, id, roleName)
		if err != nil {
			log.Printf("account %s registration failed: %v", id, err)
			return err
		}
		log.Printf("account %s registered", id)
		return nil
	})

	summary := result.Summary("register", "registered", "account")
	body := bulkBody(result)
	if len(result.Failed) > 0 {
		return envelope.Error(summary, body)
	}
	return envelope.Success(summary, body)
}

// bulkBody renders a batch result as the {succeeded, failed} wire shape.
func bulkBody(result batch.Result[string]) map[string]any {
	failed := make([]map[string]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]string{
			"id":    f.Item,
			"error": f.Err.Error(),
		})
	}
	succeeded := result.Succeeded
	if succeeded == nil {
		succeeded = []string{}
	}
	return map[string]any{
		"succeeded": succeeded,
		"failed":    failed,
	}
}
