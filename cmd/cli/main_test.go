package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iho/bookkeeper/internal/infrastructure/auth"
	"github.com/iho/bookkeeper/internal/infrastructure/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1})

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestConsistencyCmd(t *testing.T) {
	var status int
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ledger/consistency" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Company-ID") != "co-1" {
			t.Errorf("expected company header, got %q", r.Header.Get("X-Company-ID"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	status, body = http.StatusOK, `{"consistent":true,"total_debits":"10.00","total_credits":"10.00","unbalanced_transactions":[]}`
	out, err := runCLI(t, "--url", srv.URL, "--company", "co-1", "ledger", "consistency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "PASSED") {
		t.Fatalf("expected PASSED, got %q", out)
	}

	status, body = http.StatusConflict, `{"consistent":false,"total_debits":"10.00","total_credits":"9.00","unbalanced_transactions":["tx-9"]}`
	out, err = runCLI(t, "--url", srv.URL, "--company", "co-1", "ledger", "consistency")
	if err == nil {
		t.Fatal("expected failure for inconsistent ledger")
	}
	if !strings.Contains(out, "unbalanced: tx-9") {
		t.Fatalf("expected unbalanced transaction listed, got %q", out)
	}
}

func TestStatementImportCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/bank-accounts/hdfc-001/statements/import" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "csv" || r.URL.Query().Get("source") != "march.csv" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		data, _ := io.ReadAll(r.Body)
		if !strings.HasPrefix(string(data), "Date,Amount") {
			t.Errorf("unexpected upload %q", data)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"batch":{"id":"b-1","rows_total":3,"rows_imported":2,"rows_duplicate":0,"row_errors":[{"line":4,"reason":"invalid date"}]},"entries":[]}`))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "march.csv")
	if err := os.WriteFile(file, []byte("Date,Amount\n2024-03-04,10.00\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--url", srv.URL, "--company", "co-1", "statement", "import", "hdfc-001", "--file", file, "--format", "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "2 imported") || !strings.Contains(out, "line 4: invalid date") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAutoMatchCmdSendsOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["date_tolerance_days"] != float64(5) {
			t.Errorf("expected days override, got %v", req)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"matched":[{}],"contended":[],"unmatched_book":[],"unmatched_bank":[{}]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--url", srv.URL, "--token", "tok", "reconcile", "auto-match", "hdfc-001", "--days", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "matched 1") || !strings.Contains(out, "unmatched bank 1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"failed to close month","message":"period is already closed"}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "--url", srv.URL, "--company", "co-1", "monthly", "close", "hdfc-001", "2024", "3")
	if err == nil || !strings.Contains(err.Error(), "already closed") {
		t.Fatalf("expected api message in error, got %v", err)
	}

	if _, err := runCLI(t, "--url", srv.URL, "monthly", "show", "hdfc-001", "2024", "march"); err == nil {
		t.Fatal("expected invalid month to be rejected")
	}
}

func TestTokenCmd(t *testing.T) {
	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		return &config.Config{JWTSecret: "secret", JWTExpiration: time.Hour}, nil
	}
	defer func() { loadConfig = orig }()

	out, err := runCLI(t, "token", "--company", "co-1", "--role", "viewer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := auth.NewJWTManager("secret", time.Hour).Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("token did not verify: %v", err)
	}
	if p := claims.Principal(); p.CompanyID != "co-1" || p.Role != "viewer" {
		t.Fatalf("unexpected principal %+v", p)
	}

	if _, err := runCLI(t, "token", "--company", "co-1", "--role", "root"); err == nil {
		t.Fatal("expected invalid role to be rejected")
	}
}
