package login

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Environment variables consumed by the login API.
const (
	// EnvDCEAPIURL is the base URL of the DCE API gateway.
	EnvDCEAPIURL = "DCE_API_GW"
	// EnvDCEAPIURLParameter optionally names an SSM parameter holding the
	// DCE API URL. When set it takes precedence over EnvDCEAPIURL.
	EnvDCEAPIURLParameter = "DCE_API_GW_PARAM"
	// EnvRegion is the AWS region of the deployment.
	EnvRegion = "REGION"
	// EnvEventsTablePrefix is the name prefix of the events table,
	// resolved once at cold start.
	EnvEventsTablePrefix = "EVENTS_TABLE_PREFIX"
	// EnvConfigTablePrefix is the name prefix of the app configuration
	// table.
	EnvConfigTablePrefix = "CONFIG_TABLE_PREFIX"
	// EnvUserPoolPrefix is the name prefix of the Cognito user pool used
	// to resolve attendee email addresses.
	EnvUserPoolPrefix = "USER_POOL_PREFIX"
	// EnvIdentityPoolPrefix is the name prefix of the Cognito identity
	// pool backing console credentials.
	EnvIdentityPoolPrefix = "IDENTITY_POOL_PREFIX"
	// EnvLoginRateLimit overrides the per-user login attempts allowed per
	// minute.
	EnvLoginRateLimit = "LOGIN_RATE_LIMIT"
)

// defaultRateLimit bounds login URL requests per user per window.
const defaultRateLimit = 10

// defaultRateWindow is the sliding window for the login rate limit.
const defaultRateWindow = time.Minute

// Config holds the login API's settings, resolved once at cold start.
type Config struct {
	DCEAPIURL          string
	Region             string
	EventsTablePrefix  string
	ConfigTablePrefix  string
	UserPoolPrefix     string
	IdentityPoolPrefix string
	RateLimit          int
	RateWindow         time.Duration
}

type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

var (
	ErrMissingAPIURL            = errors.New(EnvDCEAPIURL + " must be set")
	ErrMissingRegion            = errors.New(EnvRegion + " must be set")
	ErrMissingEventsTablePrefix = errors.New(EnvEventsTablePrefix + " must be set")
	ErrMissingConfigTablePrefix = errors.New(EnvConfigTablePrefix + " must be set")
	ErrMissingUserPoolPrefix    = errors.New(EnvUserPoolPrefix + " must be set")
)

// LoadConfigFromEnv reads the login API configuration from the environment,
// optionally overriding the DCE API URL from an SSM parameter.
func LoadConfigFromEnv(ctx context.Context, ssmClient parameterGetter) (Config, error) {
	cfg := Config{
		DCEAPIURL:          os.Getenv(EnvDCEAPIURL),
		Region:             os.Getenv(EnvRegion),
		EventsTablePrefix:  os.Getenv(EnvEventsTablePrefix),
		ConfigTablePrefix:  os.Getenv(EnvConfigTablePrefix),
		UserPoolPrefix:     os.Getenv(EnvUserPoolPrefix),
		IdentityPoolPrefix: os.Getenv(EnvIdentityPoolPrefix),
		RateLimit:          defaultRateLimit,
		RateWindow:         defaultRateWindow,
	}

	if raw := os.Getenv(EnvLoginRateLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvLoginRateLimit, raw)
		}
		cfg.RateLimit = n
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
	if c.EventsTablePrefix == "" {
		return ErrMissingEventsTablePrefix
	}
	if c.ConfigTablePrefix == "" {
		return ErrMissingConfigTablePrefix
	}
	if c.UserPoolPrefix == "" {
		return ErrMissingUserPoolPrefix
	}
	return nil
}
