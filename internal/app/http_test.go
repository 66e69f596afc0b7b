package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"brokerportal/api/internal/export"
	"brokerportal/api/internal/session"
	"brokerportal/api/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dataStore := store.NewMemoryStore()
	svc := New(testConfig(), dataStore, session.NewMemoryStore(), &fakePublishLog{}, nil, export.NewService(dataStore))
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func loginAs(t *testing.T, srv *httptest.Server, name, role string) string {
	t.Helper()
	resp := doRequest(t, srv, http.MethodPost, "/api/session/login", "",
		`{"name":"`+name+`","role":"`+role+`"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("login returned empty token")
	}
	return body.Token
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodGet, "/api/ready", "", "")
	payload := decodeJSON(t, resp)
	if payload["status"] != "ready" {
		t.Fatalf("ready status = %v", payload["status"])
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newTestServer(t)

	paths := []string{
		"/api/portal-config",
		"/api/question-sets",
		"/api/accounts",
		"/api/analytics/overview",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := doRequest(t, srv, http.MethodGet, path, "", "")
			payload := decodeJSON(t, resp)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
			if payload["code"] != "UNAUTHORIZED" {
				t.Fatalf("code = %v", payload["code"])
			}
		})
	}

	resp := doRequest(t, srv, http.MethodGet, "/api/portal-config", "not-a-real-token", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestRoleGatesOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		role       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "support cannot edit config",
			role:       "broker_support",
			method:     http.MethodPut,
			path:       "/api/portal-config",
			body:       `{"branding":{"displayName":"X"}}`,
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "specialist cannot publish config",
			role:       "implementation_specialist",
			method:     http.MethodPost,
			path:       "/api/portal-config/publish",
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "specialist cannot delete documents",
			role:       "implementation_specialist",
			method:     http.MethodDelete,
			path:       "/api/accounts/c_1001/documents/d_1",
			body:       `{"reason":"test"}`,
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "admin cannot view onboarding",
			role:       "broker_admin",
			method:     http.MethodGet,
			path:       "/api/onboarding",
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "specialist cannot export account reports",
			role:       "implementation_specialist",
			method:     http.MethodGet,
			path:       "/api/accounts/c_1001/export?format=csv",
			wantStatus: http.StatusForbidden,
			wantCode:   "PERMISSION_DENIED",
		},
		{
			name:       "support can delete documents",
			role:       "broker_support",
			method:     http.MethodDelete,
			path:       "/api/accounts/c_1002/documents/d_3",
			body:       `{"reason":"customer request"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "internal can view onboarding",
			role:       "ogi_internal",
			method:     http.MethodGet,
			path:       "/api/onboarding",
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token := loginAs(t, srv, "Tester", tc.role)
			resp := doRequest(t, srv, tc.method, tc.path, token, tc.body)
			payload := decodeJSON(t, resp)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tc.wantStatus, payload)
			}
			if tc.wantCode != "" && payload["code"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", payload["code"], tc.wantCode)
			}
		})
	}
}

func TestPortalConfigRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Blair", "broker_admin")

	resp := doRequest(t, srv, http.MethodPut, "/api/portal-config?env=staging", token, `{
		"branding": {"displayName": "Harbour & Co", "accentColor": "#0f172a"},
		"navLinks": "[{\"label\":\"Claims\",\"url\":\"https://example.com/claims\"}]",
		"footerLinks": "[]",
		"faqs": "[]",
		"recommended": "{\"enabled\":false}"
	}`)
	payload := decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d (%v)", resp.StatusCode, payload)
	}

	resp = doRequest(t, srv, http.MethodGet, "/api/portal-config?env=staging", token, "")
	payload = decodeJSON(t, resp)
	cfg := payload["config"].(map[string]any)
	branding := cfg["branding"].(map[string]any)
	if branding["displayName"] != "Harbour & Co" {
		t.Fatalf("displayName = %v", branding["displayName"])
	}

	// Production stays on the seeded copy until an explicit publish.
	resp = doRequest(t, srv, http.MethodGet, "/api/portal-config?env=production", token, "")
	payload = decodeJSON(t, resp)
	cfg = payload["config"].(map[string]any)
	branding = cfg["branding"].(map[string]any)
	if branding["displayName"] != "Acme Brokers" {
		t.Fatalf("production displayName = %v", branding["displayName"])
	}

	resp = doRequest(t, srv, http.MethodPost, "/api/portal-config/publish", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodGet, "/api/portal-config?env=production", token, "")
	payload = decodeJSON(t, resp)
	cfg = payload["config"].(map[string]any)
	branding = cfg["branding"].(map[string]any)
	if branding["displayName"] != "Harbour & Co" {
		t.Fatalf("published displayName = %v", branding["displayName"])
	}
}

func TestPortalConfigMalformedSection(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Blair", "broker_admin")

	resp := doRequest(t, srv, http.MethodPut, "/api/portal-config", token, `{
		"branding": {"displayName": "X"},
		"faqs": "[{\"question\": \"unterminated"
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid JSON body", resp.StatusCode)
	}

	resp = doRequest(t, srv, http.MethodPut, "/api/portal-config", token, `{
		"branding": {"displayName": "X"},
		"faqs": "not json at all"
	}`)
	payload := decodeJSON(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (%v)", resp.StatusCode, payload)
	}
	if payload["code"] != "MALFORMED_CONTENT" {
		t.Fatalf("code = %v", payload["code"])
	}
}

func TestInvalidEnvironmentParam(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Blair", "broker_admin")

	resp := doRequest(t, srv, http.MethodGet, "/api/portal-config?env=testing", token, "")
	payload := decodeJSON(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("code = %v", payload["code"])
	}
}

func TestQuestionSetLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Blair", "broker_admin")

	resp := doRequest(t, srv, http.MethodPost, "/api/question-sets", token, "")
	payload := decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d (%v)", resp.StatusCode, payload)
	}
	created := payload["questionSet"].(map[string]any)
	id := created["id"].(string)

	resp = doRequest(t, srv, http.MethodPut, "/api/question-sets/"+id, token,
		`{"name":"Quote intake","journey":"QUOTE"}`)
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d (%v)", resp.StatusCode, payload)
	}
	updated := payload["questionSet"].(map[string]any)
	if updated["name"] != "Quote intake" || updated["journey"] != "QUOTE" {
		t.Fatalf("updated set = %v", updated)
	}

	resp = doRequest(t, srv, http.MethodPost, "/api/question-sets/"+id+"/publish", token, "")
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d (%v)", resp.StatusCode, payload)
	}

	resp = doRequest(t, srv, http.MethodGet, "/api/question-sets/"+id+"?env=production", token, "")
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("production get status = %d", resp.StatusCode)
	}
	published := payload["questionSet"].(map[string]any)
	if published["status"] != "PUBLISHED_LIVE" {
		t.Fatalf("published status = %v", published["status"])
	}

	resp = doRequest(t, srv, http.MethodGet, "/api/question-sets/qs_missing", token, "")
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("missing set: status %d code %v", resp.StatusCode, payload["code"])
	}
}

func TestAccountsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Casey", "broker_support")

	resp := doRequest(t, srv, http.MethodGet, "/api/accounts?q=novak", token, "")
	payload := decodeJSON(t, resp)
	accounts := payload["accounts"].([]any)
	if len(accounts) != 1 {
		t.Fatalf("accounts = %v", accounts)
	}
	first := accounts[0].(map[string]any)
	if first["id"] != "c_1001" {
		t.Fatalf("account id = %v", first["id"])
	}

	resp = doRequest(t, srv, http.MethodGet, "/api/accounts/c_1001/audit", token, "")
	payload = decodeJSON(t, resp)
	audit := payload["audit"].([]any)
	if len(audit) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(audit))
	}

	resp = doRequest(t, srv, http.MethodGet, "/api/accounts/c_9999", token, "")
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("missing account: status %d code %v", resp.StatusCode, payload["code"])
	}
}

func TestDocumentDeleteOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Casey", "broker_support")

	resp := doRequest(t, srv, http.MethodDelete, "/api/accounts/c_1001/documents/d_2", token,
		`{"reason":"GDPR request"}`)
	payload := decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d (%v)", resp.StatusCode, payload)
	}
	entry := payload["audit"].(map[string]any)
	if entry["event"] != "Document deleted" {
		t.Fatalf("audit event = %v", entry["event"])
	}
	if !strings.Contains(entry["detail"].(string), "GDPR request") {
		t.Fatalf("audit detail = %v", entry["detail"])
	}

	// Delete without a body records the fallback reason.
	resp = doRequest(t, srv, http.MethodDelete, "/api/accounts/c_1001/documents/d_1", token, "")
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bodyless delete status = %d (%v)", resp.StatusCode, payload)
	}
	entry = payload["audit"].(map[string]any)
	if !strings.HasSuffix(entry["detail"].(string), "No reason provided") {
		t.Fatalf("audit detail = %v", entry["detail"])
	}

	resp = doRequest(t, srv, http.MethodDelete, "/api/accounts/c_1001/documents/d_2", token,
		`{"reason":"again"}`)
	payload = decodeJSON(t, resp)
	if resp.StatusCode != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("second delete: status %d code %v", resp.StatusCode, payload["code"])
	}
}

func TestCSVExportOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Casey", "broker_support")

	resp := doRequest(t, srv, http.MethodGet, "/api/accounts/c_1001/export?format=csv", token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/csv" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("content disposition = %q", got)
	}

	resp = doRequest(t, srv, http.MethodGet, "/api/accounts/c_1001/export?format=xml", token, "")
	payload := decodeJSON(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unsupported format: status %d code %v", resp.StatusCode, payload["code"])
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	srv := newTestServer(t)
	token := loginAs(t, srv, "Blair", "broker_admin")

	resp := doRequest(t, srv, http.MethodPost, "/api/session/logout", token, "")
	resp.Body.Close()

	resp = doRequest(t, srv, http.MethodGet, "/api/portal-config", token, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", resp.StatusCode)
	}
}
