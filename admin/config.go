package admin

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Environment variables consumed by the admin API.
const (
	// EnvDCEAPIURL is the base URL of the DCE API gateway.
	EnvDCEAPIURL = "DCE_API_GW"
	// EnvDCEAPIURLParameter optionally names an SSM parameter holding the
	// DCE API URL. When set it takes precedence over EnvDCEAPIURL.
	EnvDCEAPIURLParameter = "DCE_API_GW_PARAM"
	// EnvRegion is the AWS region of the DCE deployment.
	EnvRegion = "REGION"
	// EnvAccountsTable names the DCE engine's accounts table, used by the
	// unsafe direct-update path.
	EnvAccountsTable = "DCE_ACCOUNTS_TABLE"
)

// Config holds the admin API's settings, resolved once at cold start.
type Config struct {
	DCEAPIURL     string
	Region        string
	AccountsTable string
}

// parameterGetter is the SSM operation used for the optional URL override.
type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

var (
	ErrMissingAPIURL        = errors.New(EnvDCEAPIURL + " must be set")
	ErrMissingRegion        = errors.New(EnvRegion + " must be set")
	ErrMissingAccountsTable = errors.New(EnvAccountsTable + " must be set")
)

// LoadConfigFromEnv reads the admin API configuration from the environment,
// optionally overriding the DCE API URL from an SSM parameter. Validation
// fails fast so a misconfigured deployment dies at cold start rather than
// on first use.
func LoadConfigFromEnv(ctx context.Context, ssmClient parameterGetter) (Config, error) {
	cfg := Config{
		DCEAPIURL:     os.Getenv(EnvDCEAPIURL),
		Region:        os.Getenv(EnvRegion),
		AccountsTable: os.Getenv(EnvAccountsTable),
	}

	if param := os.Getenv(EnvDCEAPIURLParameter); param != "" && ssmClient != nil {
		out, err := ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(param),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return Config{}, fmt.Errorf("reading SSM parameter %s: %w", param, err)
		}
		cfg.DCEAPIURL = aws.ToString(out.Parameter.Value)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DCEAPIURL == "" {
		return ErrMissingAPIURL
	}
	if c.Region == "" {
		return ErrMissingRegion
	}
	if c.AccountsTable == "" {
		return ErrMissingAccountsTable
	}
	return nil
}
