package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognitoidentity "github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
)

// Identity pool discovery errors.
var (
	// ErrIdentityPoolNotFound indicates no identity pool name matched the prefix.
	ErrIdentityPoolNotFound = errors.New("no Cognito identity pool matches prefix")
	// ErrIdentityPoolAmbiguous indicates more than one identity pool matched.
	ErrIdentityPoolAmbiguous = errors.New("multiple Cognito identity pools match prefix")
)

// identityPoolLister is the Cognito Identity operation used for discovery.
type identityPoolLister interface {
	ListIdentityPools(ctx context.Context, params *cognitoidentity.ListIdentityPoolsInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.ListIdentityPoolsOutput, error)
}

// DiscoverIdentityPoolID finds the one identity pool whose name starts with
// prefix. Like user-pool discovery, zero or multiple matches fail fast.
func DiscoverIdentityPoolID(ctx context.Context, client identityPoolLister, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("identity pool name prefix cannot be empty")
	}

	var (
		match   string
		matches int
		next    *string
	)
	for {
		out, err := client.ListIdentityPools(ctx, &cognitoidentity.ListIdentityPoolsInput{
			MaxResults: aws.Int32(60),
			NextToken:  next,
		})
		if err != nil {
			return "", fmt.Errorf("failed to list identity pools: %w", err)
		}
		for _, pool := range out.IdentityPools {
			if strings.HasPrefix(aws.ToString(pool.IdentityPoolName), prefix) {
				match = aws.ToString(pool.IdentityPoolId)
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
		return "", fmt.Errorf("%w: %s", ErrIdentityPoolNotFound, prefix)
	case 1:
		return match, nil
	default:
		return "", fmt.Errorf("%w: %s (%d matches)", ErrIdentityPoolAmbiguous, prefix, matches)
	}
}
