package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haneul-lab/lobbychat/internal/logging"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

// TestOriginCheckerAllowsConfigured verifies configured origins pass,
// case-insensitively, and others are rejected.
func TestOriginCheckerAllowsConfigured(t *testing.T) {
	checker := newOriginChecker([]string{"http://localhost:8080", "https://chat.example.com"}, logging.NopLogger{})

	if !checker.check(requestWithOrigin("http://localhost:8080")) {
		t.Error("Expected configured origin to be allowed")
	}
	if !checker.check(requestWithOrigin("HTTPS://Chat.Example.COM")) {
		t.Error("Expected origin match to be case-insensitive")
	}
	if checker.check(requestWithOrigin("http://evil.example.com")) {
		t.Error("Expected unknown origin to be rejected")
	}
}

// TestOriginCheckerRejectsMissingOrigin verifies requests without an Origin
// header are rejected even under a wildcard configuration.
func TestOriginCheckerRejectsMissingOrigin(t *testing.T) {
	checker := newOriginChecker([]string{"*"}, logging.NopLogger{})

	if checker.check(requestWithOrigin("")) {
		t.Error("Expected request without Origin header to be rejected")
	}
	if !checker.check(requestWithOrigin("http://anywhere.example")) {
		t.Error("Expected wildcard to allow any well-formed origin")
	}
}

// TestOriginCheckerIgnoresInvalidConfiguration verifies malformed
// configured origins are skipped instead of matched.
func TestOriginCheckerIgnoresInvalidConfiguration(t *testing.T) {
	checker := newOriginChecker([]string{"not a url", "", "http://ok.example"}, logging.NopLogger{})

	if !checker.check(requestWithOrigin("http://ok.example")) {
		t.Error("Expected valid configured origin to be allowed")
	}
	if checker.check(requestWithOrigin("not a url")) {
		t.Error("Expected malformed origin to be rejected")
	}
}
