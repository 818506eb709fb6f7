package dce

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// ServiceName is the signing service name for API Gateway endpoints.
const ServiceName = "execute-api"

// emptyPayloadHash is the SHA256 of an empty request body.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// ErrEmptyBaseURL indicates the DCE API base URL was not configured.
var ErrEmptyBaseURL = errors.New("DCE API base URL cannot be empty")

// HTTPClient is the subset of http.Client used by the DCE client.
// Enables testing with a mock transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client invokes the DCE leasing API with SigV4-signed requests using the
// caller's ambient execution credentials. No user-supplied credentials ever
// cross this boundary. The client never retries.
type Client struct {
	baseURL     *url.URL
	region      string
	credentials aws.CredentialsProvider
	signer      *v4.Signer
	httpClient  HTTPClient
	now         func() time.Time
}

// NewClient creates a DCE client for the given API Gateway base URL.
// The signing region comes from the AWS config, falling back to us-east-1.
func NewClient(cfg aws.Config, rawURL string) (*Client, error) {
	if rawURL == "" {
		return nil, ErrEmptyBaseURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DCE API URL %q: %w", rawURL, err)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return &Client{
		baseURL:     u,
		region:      region,
		credentials: cfg.Credentials,
		signer:      v4.NewSigner(),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		now:         time.Now,
	}, nil
}

// newClientWithHTTP creates a client with a custom transport and clock.
// Used by tests.
func newClientWithHTTP(rawURL, region string, creds aws.CredentialsProvider, httpClient HTTPClient, now func() time.Time) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:     u,
		region:      region,
		credentials: creds,
		signer:      v4.NewSigner(),
		httpClient:  httpClient,
		now:         now,
	}, nil
}

// Invoke performs one signed call against the API. The path is relative to
// the API stage and may carry a query string (e.g. "leases?limit=500").
//
// A non-nil body is JSON-serialized with Content-Length set from the byte
// length of the encoding. Response bodies that fail to parse as JSON are
// returned as the raw string rather than as an error; the engine fronts its
// API with a gateway that can emit plain-text bodies, and surfacing them
// beats masking them.
func (c *Client) Invoke(ctx context.Context, path, method string, body any) (any, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid API path %q: %w", path, err)
	}
	target := *c.baseURL
	target.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + ref.Path
	target.RawQuery = ref.RawQuery

	var (
		bodyReader  io.Reader
		payloadHash = emptyPayloadHash
		bodyBytes   []byte
	)
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		sum := sha256.Sum256(bodyBytes)
		payloadHash = hex.EncodeToString(sum[:])
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Length", strconv.Itoa(len(bodyBytes)))
	}

	creds, err := c.credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get AWS credentials: %w", err)
	}
	if err := c.signer.SignHTTP(ctx, creds, req, payloadHash, ServiceName, c.region, c.now()); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		// Degrade gracefully: hand back the raw text for diagnostics.
		return string(data), nil
	}
	return decoded, nil
}

// ListAccounts fetches up to 500 pooled accounts.
func (c *Client) ListAccounts(ctx context.Context) (any, error) {
	return c.Invoke(ctx, "accounts?limit=500", http.MethodGet, nil)
}

// RegisterAccount hands a new account with its admin role over to the engine.
func (c *Client) RegisterAccount(ctx context.Context, id, adminRoleArn string) (any, error) {
	return c.Invoke(ctx, "accounts", http.MethodPost, map[string]string{
		"adminRoleArn": adminRoleArn,
		"id":           id,
	})
}

// RemoveAccount asks the engine to drop an account from the pool. The engine
// enforces that only Ready accounts are removable.
func (c *Client) RemoveAccount(ctx context.Context, id string) (any, error) {
	return c.Invoke(ctx, "accounts/"+id, http.MethodDelete, nil)
}

// ListLeases fetches leases. A positive limit is passed through as a query
// parameter; zero fetches without one.
func (c *Client) ListLeases(ctx context.Context, limit int) (any, error) {
	path := "leases"
	if limit > 0 {
		path = "leases?limit=" + strconv.Itoa(limit)
	}
	return c.Invoke(ctx, path, http.MethodGet, nil)
}

// ListUsage fetches up to limit usage records.
func (c *Client) ListUsage(ctx context.Context, limit int) (any, error) {
	return c.Invoke(ctx, "usage?limit="+strconv.Itoa(limit), http.MethodGet, nil)
}

// CreateLease asks the engine for a new lease. Uniqueness of the principal ID
// is enforced by the engine, which rejects duplicates with
// AlreadyExistsError; that rejection is the de-duplication backstop for
// concurrent first logins.
func (c *Client) CreateLease(ctx context.Context, input CreateLeaseInput) (any, error) {
	return c.Invoke(ctx, "leases", http.MethodPost, input)
}

// TerminateLease asks the engine to end a lease and reclaim its account.
func (c *Client) TerminateLease(ctx context.Context, principalID, accountID string) (any, error) {
	return c.Invoke(ctx, "leases", http.MethodDelete, map[string]string{
		"principalId": principalID,
		"accountId":   accountID,
	})
}

// LeaseAuth requests console login credentials for a lease. The engine
// expects a JSON body even for this parameterless call, so an empty string
// is posted.
func (c *Client) LeaseAuth(ctx context.Context, leaseID string) (any, error) {
	return c.Invoke(ctx, "leases/"+leaseID+"/auth", http.MethodPost, "")
}
