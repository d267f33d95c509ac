package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New()
	t.Cleanup(s.Stop)
	return s
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/v1/run", RunRequest{Program: "++++++++[>++++++++<-]>."})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("success = false: %s %s", resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.BytesWritten != 1 || len(resp.Output) != 1 || resp.Output[0] != 64 {
		t.Errorf("output = %v (%d bytes), want [64]", resp.Output, resp.BytesWritten)
	}
}

func TestRunEndpointWithInput(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/v1/run", RunRequest{Program: ",.", Input: []byte("A")})
	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Output[0] != 'A' {
		t.Errorf("response = %+v, want echo of 'A'", resp)
	}
}

func TestRunEndpointReportsEngineFailure(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/v1/run", RunRequest{Program: "]"})
	if rec.Code != http.StatusOK {
		t.Fatalf("engine failures travel in the response body, got status %d", rec.Code)
	}
	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Fatal("success = true for unmatched bracket")
	}
	if resp.ErrorCode != "unmatched-close" {
		t.Errorf("errorCode = %q, want %q", resp.ErrorCode, "unmatched-close")
	}
	if resp.Position == nil || *resp.Position != 0 {
		t.Errorf("position = %v, want 0", resp.Position)
	}
}

func TestRunEndpointValidation(t *testing.T) {
	s := newTestServer(t)

	if rec := postJSON(t, s, "/v1/run", RunRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty program: status = %d, want 400", rec.Code)
	}
	if rec := postJSON(t, s, "/v1/run", RunRequest{Program: "+", TapeSize: maxEvalTape + 1}); rec.Code != http.StatusBadRequest {
		t.Errorf("oversized tape: status = %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/run", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d, want 405", rec.Code)
	}
}

func TestCheckEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/v1/check", CheckRequest{Program: "+[>.<-]"})
	var resp CheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ok {
		t.Errorf("well-formed program flagged: %+v", resp)
	}

	rec = postJSON(t, s, "/v1/check", CheckRequest{Program: "[[]"})
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ok {
		t.Fatal("unclosed loop passed the check")
	}
	if resp.ErrorCode != "unmatched-open" {
		t.Errorf("errorCode = %q, want %q", resp.ErrorCode, "unmatched-open")
	}
	if resp.Position == nil || *resp.Position != 0 {
		t.Errorf("position = %v, want 0", resp.Position)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
