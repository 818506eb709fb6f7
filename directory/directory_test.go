package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognitoidentity "github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	identitytypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentity/types"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// mockCognito implements cognitoAPI and poolLister with configurable
// behavior and call tracking.
type mockCognito struct {
	AdminGetUserFunc    func(ctx context.Context, params *cognito.AdminGetUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminGetUserOutput, error)
	ListUsersFunc       func(ctx context.Context, params *cognito.ListUsersInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersOutput, error)
	ListUserPoolsFunc   func(ctx context.Context, params *cognito.ListUserPoolsInput, optFns ...func(*cognito.Options)) (*cognito.ListUserPoolsOutput, error)
	AdminCreateUserFunc func(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error)

	AdminGetUserCalls    []*cognito.AdminGetUserInput
	DeleteUserCalls      []*cognito.AdminDeleteUserInput
	AddToGroupCalls      []*cognito.AdminAddUserToGroupInput
	RemoveFromGroupCalls []*cognito.AdminRemoveUserFromGroupInput
	CreateUserCalls      []*cognito.AdminCreateUserInput
	ListInGroupCalls     []*cognito.ListUsersInGroupInput
}

func (m *mockCognito) AdminGetUser(ctx context.Context, params *cognito.AdminGetUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminGetUserOutput, error) {
	m.AdminGetUserCalls = append(m.AdminGetUserCalls, params)
	if m.AdminGetUserFunc != nil {
		return m.AdminGetUserFunc(ctx, params, optFns...)
	}
	return nil, errors.New("AdminGetUser not implemented")
}

func (m *mockCognito) ListUsers(ctx context.Context, params *cognito.ListUsersInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersOutput, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, params, optFns...)
	}
	return &cognito.ListUsersOutput{}, nil
}

func (m *mockCognito) ListUsersInGroup(ctx context.Context, params *cognito.ListUsersInGroupInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersInGroupOutput, error) {
	m.ListInGroupCalls = append(m.ListInGroupCalls, params)
	return &cognito.ListUsersInGroupOutput{}, nil
}

func (m *mockCognito) AdminCreateUser(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error) {
	m.CreateUserCalls = append(m.CreateUserCalls, params)
	if m.AdminCreateUserFunc != nil {
		return m.AdminCreateUserFunc(ctx, params, optFns...)
	}
	return &cognito.AdminCreateUserOutput{User: &types.UserType{
		Username:   params.Username,
		Attributes: params.UserAttributes,
		UserStatus: types.UserStatusTypeForceChangePassword,
		Enabled:    true,
	}}, nil
}

func (m *mockCognito) AdminDeleteUser(ctx context.Context, params *cognito.AdminDeleteUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminDeleteUserOutput, error) {
	m.DeleteUserCalls = append(m.DeleteUserCalls, params)
	return &cognito.AdminDeleteUserOutput{}, nil
}

func (m *mockCognito) AdminAddUserToGroup(ctx context.Context, params *cognito.AdminAddUserToGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminAddUserToGroupOutput, error) {
	m.AddToGroupCalls = append(m.AddToGroupCalls, params)
	return &cognito.AdminAddUserToGroupOutput{}, nil
}

func (m *mockCognito) AdminRemoveUserFromGroup(ctx context.Context, params *cognito.AdminRemoveUserFromGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminRemoveUserFromGroupOutput, error) {
	m.RemoveFromGroupCalls = append(m.RemoveFromGroupCalls, params)
	return &cognito.AdminRemoveUserFromGroupOutput{}, nil
}

func (m *mockCognito) ListUserPools(ctx context.Context, params *cognito.ListUserPoolsInput, optFns ...func(*cognito.Options)) (*cognito.ListUserPoolsOutput, error) {
	if m.ListUserPoolsFunc != nil {
		return m.ListUserPoolsFunc(ctx, params, optFns...)
	}
	return &cognito.ListUserPoolsOutput{}, nil
}

func TestResolveEmail(t *testing.T) {
	t.Run("returns email attribute", func(t *testing.T) {
		mock := &mockCognito{
			AdminGetUserFunc: func(_ context.Context, params *cognito.AdminGetUserInput, _ ...func(*cognito.Options)) (*cognito.AdminGetUserOutput, error) {
				return &cognito.AdminGetUserOutput{
					Username: params.Username,
					UserAttributes: []types.AttributeType{
						{Name: aws.String("sub"), Value: aws.String("uuid")},
						{Name: aws.String("email"), Value: aws.String("a.b@x.com")},
					},
				}, nil
			},
		}
		d := newWithClient(mock, "eu-west-1_POOL")

		email, err := d.ResolveEmail(context.Background(), "a.b@x.com")
		if err != nil {
			t.Fatalf("ResolveEmail: %v", err)
		}
		if email != "a.b@x.com" {
			t.Errorf("email = %q", email)
		}
		if got := aws.ToString(mock.AdminGetUserCalls[0].UserPoolId); got != "eu-west-1_POOL" {
			t.Errorf("user pool = %q", got)
		}
	})

	t.Run("missing email attribute is ErrNoEmailAttribute", func(t *testing.T) {
		mock := &mockCognito{
			AdminGetUserFunc: func(_ context.Context, params *cognito.AdminGetUserInput, _ ...func(*cognito.Options)) (*cognito.AdminGetUserOutput, error) {
				return &cognito.AdminGetUserOutput{Username: params.Username}, nil
			},
		}
		d := newWithClient(mock, "pool")
		if _, err := d.ResolveEmail(context.Background(), "ghost"); !errors.Is(err, ErrNoEmailAttribute) {
			t.Errorf("expected ErrNoEmailAttribute, got %v", err)
		}
	})
}

func TestDiscoverUserPoolID(t *testing.T) {
	pools := func(names ...string) []types.UserPoolDescriptionType {
		var out []types.UserPoolDescriptionType
		for i, n := range names {
			out = append(out, types.UserPoolDescriptionType{
				Id:   aws.String("pool-" + string(rune('a'+i))),
				Name: aws.String(n),
			})
		}
		return out
	}

	t.Run("single match", func(t *testing.T) {
		mock := &mockCognito{
			ListUserPoolsFunc: func(_ context.Context, _ *cognito.ListUserPoolsInput, _ ...func(*cognito.Options)) (*cognito.ListUserPoolsOutput, error) {
				return &cognito.ListUserPoolsOutput{UserPools: pools("otherapp", "safe2abc123")}, nil
			},
		}
		id, err := DiscoverUserPoolID(context.Background(), mock, "safe2")
		if err != nil {
			t.Fatalf("DiscoverUserPoolID: %v", err)
		}
		if id != "pool-b" {
			t.Errorf("id = %q", id)
		}
	})

	t.Run("zero matches", func(t *testing.T) {
		mock := &mockCognito{
			ListUserPoolsFunc: func(_ context.Context, _ *cognito.ListUserPoolsInput, _ ...func(*cognito.Options)) (*cognito.ListUserPoolsOutput, error) {
				return &cognito.ListUserPoolsOutput{UserPools: pools("otherapp")}, nil
			},
		}
		if _, err := DiscoverUserPoolID(context.Background(), mock, "safe2"); !errors.Is(err, ErrUserPoolNotFound) {
			t.Errorf("expected ErrUserPoolNotFound, got %v", err)
		}
	})

	t.Run("multiple matches fail fast", func(t *testing.T) {
		mock := &mockCognito{
			ListUserPoolsFunc: func(_ context.Context, _ *cognito.ListUserPoolsInput, _ ...func(*cognito.Options)) (*cognito.ListUserPoolsOutput, error) {
				return &cognito.ListUserPoolsOutput{UserPools: pools("safe2abc", "safe2def")}, nil
			},
		}
		if _, err := DiscoverUserPoolID(context.Background(), mock, "safe2"); !errors.Is(err, ErrUserPoolAmbiguous) {
			t.Errorf("expected ErrUserPoolAmbiguous, got %v", err)
		}
	})
}

// mockIdentityClient implements identityPoolLister.
type mockIdentityClient struct {
	pages []*cognitoidentity.ListIdentityPoolsOutput
	calls int
}

func (m *mockIdentityClient) ListIdentityPools(ctx context.Context, params *cognitoidentity.ListIdentityPoolsInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.ListIdentityPoolsOutput, error) {
	out := m.pages[m.calls]
	m.calls++
	return out, nil
}

func TestDiscoverIdentityPoolID(t *testing.T) {
	mock := &mockIdentityClient{pages: []*cognitoidentity.ListIdentityPoolsOutput{
		{
			IdentityPools: []identitytypes.IdentityPoolShortDescription{
				{IdentityPoolId: aws.String("eu-west-1:other"), IdentityPoolName: aws.String("otherapp")},
			},
			NextToken: aws.String("page2"),
		},
		{
			IdentityPools: []identitytypes.IdentityPoolShortDescription{
				{IdentityPoolId: aws.String("eu-west-1:safe"), IdentityPoolName: aws.String("safe2idpool")},
			},
		},
	}}

	id, err := DiscoverIdentityPoolID(context.Background(), mock, "safe2")
	if err != nil {
		t.Fatalf("DiscoverIdentityPoolID: %v", err)
	}
	if id != "eu-west-1:safe" {
		t.Errorf("id = %q", id)
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 pages, got %d", mock.calls)
	}
}

func TestCreateUser(t *testing.T) {
	mock := &mockCognito{}
	d := newWithClient(mock, "pool")

	user, err := d.CreateUser(context.Background(), "new@x.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "new@x.com" || user.Email() != "new@x.com" {
		t.Errorf("user = %+v", user)
	}
	call := mock.CreateUserCalls[0]
	if len(call.DesiredDeliveryMediums) != 1 || call.DesiredDeliveryMediums[0] != types.DeliveryMediumTypeEmail {
		t.Errorf("expected email invite delivery, got %v", call.DesiredDeliveryMediums)
	}
}

func TestCreateUserAlreadyExists(t *testing.T) {
	mock := &mockCognito{
		AdminCreateUserFunc: func(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error) {
			return nil, &smithy.GenericAPIError{
				Code:    "UsernameExistsException",
				Message: "An account with the given email already exists.",
			}
		},
	}
	d := newWithClient(mock, "pool")

	_, err := d.CreateUser(context.Background(), "dup@x.com")
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("err = %v, want ErrUserExists", err)
	}
}

func TestGroupMembership(t *testing.T) {
	mock := &mockCognito{}
	d := newWithClient(mock, "pool")

	if err := d.AddUserToGroup(context.Background(), "alice", "operator"); err != nil {
		t.Fatalf("AddUserToGroup: %v", err)
	}
	if err := d.RemoveUserFromGroup(context.Background(), "alice", "admin"); err != nil {
		t.Fatalf("RemoveUserFromGroup: %v", err)
	}
	if got := aws.ToString(mock.AddToGroupCalls[0].GroupName); got != "operator" {
		t.Errorf("add group = %q", got)
	}
	if got := aws.ToString(mock.RemoveFromGroupCalls[0].GroupName); got != "admin" {
		t.Errorf("remove group = %q", got)
	}
}
