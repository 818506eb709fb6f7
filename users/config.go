package users

import (
	"errors"
	"os"
	"strings"
)

// Environment variables consumed by the users API.
const (
	// EnvRegion is the AWS region of the deployment.
	EnvRegion = "REGION"
	// EnvUserPoolPrefix is the name prefix of the Cognito user pool,
	// resolved once at cold start.
	EnvUserPoolPrefix = "USER_POOL_PREFIX"
	// EnvUserGroups optionally overrides the comma-separated list of
	// group names the API will operate on.
	EnvUserGroups = "USER_GROUPS"
)

// defaultGroups are the console's built-in permission groups.
var defaultGroups = []string{"admin", "operator"}

// Config holds the users API's settings, resolved once at cold start.
type Config struct {
	Region         string
	UserPoolPrefix string
	// Groups is the closed set of group names accepted by the group
	// membership actions.
	Groups []string
}

var (
	ErrMissingRegion         = errors.New(EnvRegion + " must be set")
	ErrMissingUserPoolPrefix = errors.New(EnvUserPoolPrefix + " must be set")
)

// LoadConfigFromEnv reads the users API configuration from the environment.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Region:         os.Getenv(EnvRegion),
		UserPoolPrefix: os.Getenv(EnvUserPoolPrefix),
		Groups:         defaultGroups,
	}

	if raw := os.Getenv(EnvUserGroups); raw != "" {
		var groups []string
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
		if len(groups) > 0 {
			cfg.Groups = groups
		}
	}

	if cfg.Region == "" {
		return Config{}, ErrMissingRegion
	}
	if cfg.UserPoolPrefix == "" {
		return Config{}, ErrMissingUserPoolPrefix
	}
	return cfg, nil
}

// KnownGroup reports whether name is one of the configured group names.
func (c Config) KnownGroup(name string) bool {
	for _, g := range c.Groups {
		if g == name {
			return true
		}
	}
	return false
}
