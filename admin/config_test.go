package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/eventsandbox/safe/testutil"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("reads environment", func(t *testing.T) {
		t.Setenv(EnvDCEAPIURL, "https://dce.example.com/api")
		t.Setenv(EnvRegion, "eu-west-1")
		t.Setenv(EnvAccountsTable, "dce-accounts")
		t.Setenv(EnvDCEAPIURLParameter, "")

		cfg, err := LoadConfigFromEnv(context.Background(), nil)
		if err != nil {
			t.Fatalf("LoadConfigFromEnv: %v", err)
		}
		if cfg.DCEAPIURL != "https://dce.example.com/api" || cfg.AccountsTable != "dce-accounts" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("SSM parameter overrides the URL", func(t *testing.T) {
		t.Setenv(EnvDCEAPIURL, "https://stale.example.com")
		t.Setenv(EnvRegion, "eu-west-1")
		t.Setenv(EnvAccountsTable, "dce-accounts")
		t.Setenv(EnvDCEAPIURLParameter, "/dce/api-url")

		client := &testutil.MockSSMClient{
			GetParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				return &ssm.GetParameterOutput{Parameter: &types.Parameter{
					Value: aws.String("https://fresh.example.com/api"),
				}}, nil
			},
		}

		cfg, err := LoadConfigFromEnv(context.Background(), client)
		if err != nil {
			t.Fatalf("LoadConfigFromEnv: %v", err)
		}
		if cfg.DCEAPIURL != "https://fresh.example.com/api" {
			t.Errorf("DCEAPIURL = %q", cfg.DCEAPIURL)
		}
		if len(client.GetParameterCalls) != 1 {
			t.Fatalf("GetParameter calls = %d", len(client.GetParameterCalls))
		}
		call := client.GetParameterCalls[0]
		if aws.ToString(call.Name) != "/dce/api-url" || !aws.ToBool(call.WithDecryption) {
			t.Errorf("GetParameter input = %+v", call)
		}
	})

	t.Run("missing region fails fast", func(t *testing.T) {
		t.Setenv(EnvDCEAPIURL, "https://dce.example.com/api")
		t.Setenv(EnvRegion, "")
		t.Setenv(EnvAccountsTable, "dce-accounts")
		t.Setenv(EnvDCEAPIURLParameter, "")

		if _, err := LoadConfigFromEnv(context.Background(), nil); !errors.Is(err, ErrMissingRegion) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("SSM failure aborts init", func(t *testing.T) {
		t.Setenv(EnvDCEAPIURL, "https://dce.example.com/api")
		t.Setenv(EnvRegion, "eu-west-1")
		t.Setenv(EnvAccountsTable, "dce-accounts")
		t.Setenv(EnvDCEAPIURLParameter, "/dce/api-url")

		client := &testutil.MockSSMClient{}
		if _, err := LoadConfigFromEnv(context.Background(), client); err == nil {
			t.Error("expected error from unimplemented GetParameter")
		}
	})
}
