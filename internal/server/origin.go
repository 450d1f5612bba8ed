// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/haneul-lab/lobbychat/internal/logging"
)

// originChecker decides whether a WebSocket upgrade request comes from an
// allowed origin. A configured "*" allows every origin.
type originChecker struct {
	allowed  map[string]struct{}
	allowAll bool
	log      logging.Logger
}

func newOriginChecker(origins []string, log logging.Logger) *originChecker {
	checker := &originChecker{
		allowed: make(map[string]struct{}, len(origins)),
		log:     log,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			checker.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn(context.Background(), "ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		checker.allowed[normalized] = struct{}{}
	}

	return checker
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (oc *originChecker) check(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	if oc.allowAll {
		return true
	}

	if _, exists := oc.allowed[normalized]; exists {
		return true
	}

	oc.log.Warn(r.Context(), "blocked WebSocket connection from disallowed origin", "origin", originHeader)
	return false
}
