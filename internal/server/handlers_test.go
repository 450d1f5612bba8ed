package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return resp, decoded
}

// TestSignupHandler verifies the status mapping of POST /signup: created,
// validation failure, and duplicate login id.
func TestSignupHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	signupURL := env.ts.URL + "/signup"

	valid := map[string]string{
		"loginId":  "alice1",
		"password": "secret",
		"name":     "Alice",
		"nickname": "allie",
	}

	resp, body := postJSON(t, signupURL, valid)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%v)", resp.StatusCode, body)
	}
	if userID, _ := body["userId"].(string); userID == "" {
		t.Error("Expected a generated userId in the response")
	}

	resp, _ = postJSON(t, signupURL, valid)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate login id, got %d", resp.StatusCode)
	}

	tooShort := map[string]string{"loginId": "ab", "password": "secret", "name": "A", "nickname": "a"}
	resp, _ = postJSON(t, signupURL, tooShort)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for short login id, got %d", resp.StatusCode)
	}

	uppercase := map[string]string{"loginId": "ABC123", "password": "secret", "name": "A", "nickname": "a"}
	resp, _ = postJSON(t, signupURL, uppercase)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for uppercase login id, got %d", resp.StatusCode)
	}
}

// TestLoginHandler verifies POST /login, including the collapsed failure
// for unknown users and wrong passwords.
func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	_, _ = postJSON(t, env.ts.URL+"/signup", map[string]string{
		"loginId":  "alice1",
		"password": "secret",
		"name":     "Alice",
		"nickname": "allie",
	})

	resp, body := postJSON(t, env.ts.URL+"/login", map[string]string{"loginId": "alice1", "password": "secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["nickname"] != "allie" || body["name"] != "Alice" {
		t.Errorf("Unexpected login response body: %v", body)
	}

	resp, wrongBody := postJSON(t, env.ts.URL+"/login", map[string]string{"loginId": "alice1", "password": "nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for wrong password, got %d", resp.StatusCode)
	}

	resp, unknownBody := postJSON(t, env.ts.URL+"/login", map[string]string{"loginId": "nobody99", "password": "secret"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown user, got %d", resp.StatusCode)
	}

	if wrongBody["message"] != unknownBody["message"] {
		t.Errorf("Login failures must be indistinguishable: %v vs %v", wrongBody["message"], unknownBody["message"])
	}
}

// TestHealthEndpoint verifies the health check responds with plain text.
func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Expected text/plain content type, got %q", ct)
	}
}
