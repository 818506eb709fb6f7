// Package tables holds the DynamoDB collaborators of the SAfE API shims:
// the console's event and configuration records, plus the two labeled-unsafe
// direct patches of the DCE engine's own account and lease tables.
package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Table discovery errors.
var (
	// ErrTableNotFound indicates no table matched the prefix.
	ErrTableNotFound = errors.New("no DynamoDB table matches prefix")
	// ErrTableAmbiguous indicates more than one table matched the prefix.
	// Discovery fails fast instead of silently picking the first match.
	ErrTableAmbiguous = errors.New("multiple DynamoDB tables match prefix")
)

// tableLister is the DynamoDB operation used for discovery.
type tableLister interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// DiscoverTableName finds the one table whose name starts with prefix.
// Amplify-provisioned tables carry generated suffixes, so the deployed name
// is only known by prefix. The scan paginates through the full table list;
// zero or multiple matches are hard errors because the result is cached for
// the process lifetime.
func DiscoverTableName(ctx context.Context, client tableLister, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("table name prefix cannot be empty")
	}

	var (
		match   string
		matches int
		start   *string
	)
	for {
		out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: start,
		})
		if err != nil {
			return "", fmt.Errorf("failed to list DynamoDB tables: %w", err)
		}
		for _, name := range out.TableNames {
			if strings.HasPrefix(name, prefix) {
				match = name
				matches++
			}
		}
		if out.LastEvaluatedTableName == nil {
			break
		}
		start = out.LastEvaluatedTableName
	}

	switch matches {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, prefix)
	case 1:
		return match, nil
	default:
		return "", fmt.Errorf("%w: %s (%d matches)", ErrTableAmbiguous, prefix, matches)
	}
}
