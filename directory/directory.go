// Package directory wraps the Cognito user pool that backs the SAfE
// console's user management. It resolves authenticated usernames to email
// addresses and exposes the user CRUD surface consumed by the users shim.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// User pool discovery errors.
var (
	// ErrUserPoolNotFound indicates no pool name matched the prefix.
	ErrUserPoolNotFound = errors.New("no Cognito user pool matches prefix")
	// ErrUserPoolAmbiguous indicates more than one pool matched the prefix.
	ErrUserPoolAmbiguous = errors.New("multiple Cognito user pools match prefix")
	// ErrNoEmailAttribute indicates a user record carries no email attribute.
	ErrNoEmailAttribute = errors.New("user has no email attribute")
	// ErrUserExists indicates an invitation collided with an existing user.
	ErrUserExists = errors.New("user already exists")
)

// emailAttribute is the Cognito standard attribute holding the address.
const emailAttribute = "email"

// cognitoAPI defines the Cognito operations used by Directory.
// This interface enables testing with mock implementations.
type cognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cognito.AdminGetUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminGetUserOutput, error)
	ListUsers(ctx context.Context, params *cognito.ListUsersInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersOutput, error)
	ListUsersInGroup(ctx context.Context, params *cognito.ListUsersInGroupInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersInGroupOutput, error)
	AdminCreateUser(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error)
	AdminDeleteUser(ctx context.Context, params *cognito.AdminDeleteUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminDeleteUserOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cognito.AdminAddUserToGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroup(ctx context.Context, params *cognito.AdminRemoveUserFromGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminRemoveUserFromGroupOutput, error)
}

// poolLister is the Cognito operation used for pool discovery.
type poolLister interface {
	ListUserPools(ctx context.Context, params *cognito.ListUserPoolsInput, optFns ...func(*cognito.Options)) (*cognito.ListUserPoolsOutput, error)
}

// User mirrors the Cognito user shape the console's user table consumes.
// Field casing is part of the wire contract with the console.
type User struct {
	Username             string      `json:"Username"`
	Attributes           []Attribute `json:"Attributes"`
	UserStatus           string      `json:"UserStatus"`
	Enabled              bool        `json:"Enabled"`
	UserCreateDate       *time.Time  `json:"UserCreateDate,omitempty"`
	UserLastModifiedDate *time.Time  `json:"UserLastModifiedDate,omitempty"`
}

// Attribute is one Cognito user attribute.
type Attribute struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Email returns the user's email attribute, or "" when absent.
func (u User) Email() string {
	for _, a := range u.Attributes {
		if a.Name == emailAttribute {
			return a.Value
		}
	}
	return ""
}

// Directory provides user lookups and management against one user pool.
type Directory struct {
	client     cognitoAPI
	userPoolID string
}

// New creates a Directory from an AWS config and a resolved user pool ID.
func New(cfg aws.Config, userPoolID string) *Directory {
	return &Directory{
		client:     cognito.NewFromConfig(cfg),
		userPoolID: userPoolID,
	}
}

// newWithClient creates a Directory with a custom client. Used by tests.
func newWithClient(client cognitoAPI, userPoolID string) *Directory {
	return &Directory{client: client, userPoolID: userPoolID}
}

// DiscoverUserPoolID finds the one user pool whose name starts with prefix.
// Zero or multiple matches are hard errors; the result is an immutable
// infrastructure identifier resolved once at process start.
func DiscoverUserPoolID(ctx context.Context, client poolLister, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("user pool name prefix cannot be empty")
	}

	var (
		match   string
		matches int
		next    *string
	)
	for {
		out, err := client.ListUserPools(ctx, &cognito.ListUserPoolsInput{
			MaxResults: aws.Int32(60),
			NextToken:  next,
		})
		if err != nil {
			return "", fmt.Errorf("failed to list user pools: %w", err)
		}
		for _, pool := range out.UserPools {
			if strings.HasPrefix(aws.ToString(pool.Name), prefix) {
				match = aws.ToString(pool.Id)
				matches++
			}
		}
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}

	switch matches {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrUserPoolNotFound, prefix)
	case 1:
		return match, nil
	default:
		return "", fmt.Errorf("%w: %s (%d matches)", ErrUserPoolAmbiguous, prefix, matches)
	}
}

// ResolveEmail maps an authenticated username to the user's email address.
func (d *Directory) ResolveEmail(ctx context.Context, username string) (string, error) {
	out, err := d.client.AdminGetUser(ctx, &cognito.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == emailAttribute {
			return aws.ToString(attr.Value), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoEmailAttribute, username)
}

// ListUsers fetches one page of pool users. An empty paginationToken starts
// from the beginning; the returned token is empty on the last page.
func (d *Directory) ListUsers(ctx context.Context, limit int32, paginationToken string) ([]User, string, error) {
	input := &cognito.ListUsersInput{
		UserPoolId: aws.String(d.userPoolID),
		Limit:      aws.Int32(limit),
	}
	if paginationToken != "" {
		input.PaginationToken = aws.String(paginationToken)
	}
	out, err := d.client.ListUsers(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list users: %w", err)
	}
	return convertUsers(out.Users), aws.ToString(out.PaginationToken), nil
}

// ListUsersInGroup fetches one page of the named group's members.
func (d *Directory) ListUsersInGroup(ctx context.Context, groupName string, limit int32, nextToken string) ([]User, string, error) {
	input := &cognito.ListUsersInGroupInput{
		UserPoolId: aws.String(d.userPoolID),
		GroupName:  aws.String(groupName),
		Limit:      aws.Int32(limit),
	}
	if nextToken != "" {
		input.NextToken = aws.String(nextToken)
	}
	out, err := d.client.ListUsersInGroup(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list users in group %s: %w", groupName, err)
	}
	return convertUsers(out.Users), aws.ToString(out.NextToken), nil
}

// CreateUser invites a new user by email. The email doubles as the username;
// Cognito sends the invitation message.
func (d *Directory) CreateUser(ctx context.Context, email string) (*User, error) {
	out, err := d.client.AdminCreateUser(ctx, &cognito.AdminCreateUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String(emailAttribute), Value: aws.String(email)},
		},
		DesiredDeliveryMediums: []types.DeliveryMediumType{types.DeliveryMediumTypeEmail},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "UsernameExistsException" {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	if out.User == nil {
		return nil, fmt.Errorf("user pool returned no user record for %s", email)
	}
	user := convertUser(*out.User)
	return &user, nil
}

// DeleteUser removes a user from the pool.
func (d *Directory) DeleteUser(ctx context.Context, username string) error {
	_, err := d.client.AdminDeleteUser(ctx, &cognito.AdminDeleteUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	return nil
}

// AddUserToGroup grants group membership.
func (d *Directory) AddUserToGroup(ctx context.Context, username, groupName string) error {
	_, err := d.client.AdminAddUserToGroup(ctx, &cognito.AdminAddUserToGroupInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
		GroupName:  aws.String(groupName),
	})
	if err != nil {
		return fmt.Errorf("failed to add user %s to group %s: %w", username, groupName, err)
	}
	return nil
}

// RemoveUserFromGroup revokes group membership.
func (d *Directory) RemoveUserFromGroup(ctx context.Context, username, groupName string) error {
	_, err := d.client.AdminRemoveUserFromGroup(ctx, &cognito.AdminRemoveUserFromGroupInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
		GroupName:  aws.String(groupName),
	})
	if err != nil {
		return fmt.Errorf("failed to remove user %s from group %s: %w", username, groupName, err)
	}
	return nil
}

func convertUsers(users []types.UserType) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, convertUser(u))
	}
	return out
}

func convertUser(u types.UserType) User {
	attrs := make([]Attribute, 0, len(u.Attributes))
	for _, a := range u.Attributes {
		attrs = append(attrs, Attribute{
			Name:  aws.ToString(a.Name),
			Value: aws.ToString(a.Value),
		})
	}
	return User{
		Username:             aws.ToString(u.Username),
		Attributes:           attrs,
		UserStatus:           string(u.UserStatus),
		Enabled:              u.Enabled,
		UserCreateDate:       u.UserCreateDate,
		UserLastModifiedDate: u.UserLastModifiedDate,
	}
}
