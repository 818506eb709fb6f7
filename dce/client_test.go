package dce

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/go-cmp/cmp"
)

// mockTransport records requests and plays back canned responses.
type mockTransport struct {
	requests  []*http.Request
	bodies    []string
	responses []string
	status    int
	err       error
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	if m.err != nil {
		return nil, m.err
	}
	resp := "{}"
	if len(m.responses) > 0 {
		resp = m.responses[0]
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(resp)),
		Header:     make(http.Header),
	}, nil
}

func testCreds() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
			SessionToken:    "token",
		}, nil
	})
}

func testClient(t *testing.T, transport *mockTransport) *Client {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	c, err := newClientWithHTTP("https://abc123.execute-api.eu-west-1.amazonaws.com/api", "eu-west-1", testCreds(), transport, now)
	if err != nil {
		t.Fatalf("newClientWithHTTP: %v", err)
	}
	return c
}

func TestInvoke_SignsRequest(t *testing.T) {
	transport := &mockTransport{responses: []string{`[]`}}
	c := testClient(t, transport)

	if _, err := c.Invoke(context.Background(), "accounts?limit=500", http.MethodGet, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if len(transport.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(transport.requests))
	}
	req := transport.requests[0]
	auth := req.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256") {
		t.Errorf("expected SigV4 authorization header, got %q", auth)
	}
	if !strings.Contains(auth, "/eu-west-1/execute-api/aws4_request") {
		t.Errorf("expected execute-api credential scope, got %q", auth)
	}
	if req.Header.Get("X-Amz-Security-Token") == "" {
		t.Error("expected session token header on signed request")
	}
	if got, want := req.URL.Path, "/api/accounts"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if got, want := req.URL.RawQuery, "limit=500"; got != want {
		t.Errorf("query = %q, want %q", got, want)
	}
}

func TestInvoke_BodyHandling(t *testing.T) {
	t.Run("serializes body with content headers", func(t *testing.T) {
		transport := &mockTransport{}
		c := testClient(t, transport)

		_, err := c.RegisterAccount(context.Background(), "111122223333", "arn:aws:iam::111122223333:role/OrgRole")
		if err != nil {
			t.Fatalf("RegisterAccount: %v", err)
		}

		req := transport.requests[0]
		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body := transport.bodies[0]
		if got, want := req.Header.Get("Content-Length"), strconv.Itoa(len(body)); got != want {
			t.Errorf("Content-Length = %q, want %q", got, want)
		}
		if !strings.Contains(body, `"id":"111122223333"`) {
			t.Errorf("body missing account id: %s", body)
		}
	})

	t.Run("lease auth posts empty JSON string", func(t *testing.T) {
		transport := &mockTransport{responses: []string{`{"consoleUrl":"https://signin"}`}}
		c := testClient(t, transport)

		if _, err := c.LeaseAuth(context.Background(), "lease-1"); err != nil {
			t.Fatalf("LeaseAuth: %v", err)
		}
		if got, want := transport.bodies[0], `""`; got != want {
			t.Errorf("body = %q, want %q", got, want)
		}
		if got, want := transport.requests[0].URL.Path, "/api/leases/lease-1/auth"; got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	})

	t.Run("GET sends no body", func(t *testing.T) {
		transport := &mockTransport{responses: []string{`[]`}}
		c := testClient(t, transport)

		if _, err := c.ListLeases(context.Background(), 0); err != nil {
			t.Fatalf("ListLeases: %v", err)
		}
		if transport.bodies[0] != "" {
			t.Errorf("expected empty body, got %q", transport.bodies[0])
		}
		if got, want := transport.requests[0].URL.Path, "/api/leases"; got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	})
}

func TestInvoke_ResponseDecoding(t *testing.T) {
	t.Run("JSON decodes to untyped value", func(t *testing.T) {
		transport := &mockTransport{responses: []string{`[{"id":"a"},{"id":"b"}]`}}
		c := testClient(t, transport)

		got, err := c.ListAccounts(context.Background())
		if err != nil {
			t.Fatalf("ListAccounts: %v", err)
		}
		arr, ok := got.([]any)
		if !ok || len(arr) != 2 {
			t.Errorf("expected 2-element array, got %#v", got)
		}
	})

	t.Run("non-JSON body returns raw string, not error", func(t *testing.T) {
		transport := &mockTransport{responses: []string{"<html>bad gateway</html>"}, status: http.StatusBadGateway}
		c := testClient(t, transport)

		got, err := c.ListAccounts(context.Background())
		if err != nil {
			t.Fatalf("expected graceful degrade, got error: %v", err)
		}
		if got != "<html>bad gateway</html>" {
			t.Errorf("expected raw string passthrough, got %#v", got)
		}
	})

	t.Run("transport failure propagates as error", func(t *testing.T) {
		transport := &mockTransport{err: io.ErrUnexpectedEOF}
		c := testClient(t, transport)

		if _, err := c.ListAccounts(context.Background()); err == nil {
			t.Fatal("expected error from transport failure")
		}
	})
}

func TestAsList(t *testing.T) {
	t.Run("decodes lease array", func(t *testing.T) {
		payload := []any{
			map[string]any{"id": "l1", "principalId": "EVT__user", "budgetAmount": 10.0},
		}
		leases, ok := AsList[Lease](payload)
		if !ok {
			t.Fatal("expected decode to succeed")
		}
		want := []Lease{{ID: "l1", PrincipalID: "EVT__user", BudgetAmount: 10}}
		if diff := cmp.Diff(want, leases); diff != "" {
			t.Errorf("lease mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects non-array payloads", func(t *testing.T) {
		if _, ok := AsList[Lease](map[string]any{"message": "nope"}); ok {
			t.Error("expected object payload to be rejected")
		}
		if _, ok := AsList[Lease]("raw text"); ok {
			t.Error("expected string payload to be rejected")
		}
	})
}
