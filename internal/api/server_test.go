package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/salescopilot/amsgen/internal/body"
	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/dojo"
	"github.com/salescopilot/amsgen/internal/extract"
	"github.com/salescopilot/amsgen/internal/plan"
	"github.com/salescopilot/amsgen/internal/record"
	"github.com/salescopilot/amsgen/internal/store"
)

type fakeGenerator struct {
	rec     record.FinalRecord
	err     error
	payload extract.CallPayload
}

func (f *fakeGenerator) Run(ctx context.Context, payload extract.CallPayload) (record.FinalRecord, error) {
	f.payload = payload
	if f.err != nil {
		return record.FinalRecord{}, f.err
	}
	return f.rec, nil
}

type fakeExtracts struct {
	data map[string]json.RawMessage
}

func (f *fakeExtracts) GetExtraction(ctx context.Context, sessionID string) (json.RawMessage, error) {
	payload, ok := f.data[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return payload, nil
}

func newDojoManager(t *testing.T) *dojo.Manager {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "喂？你哪位？"}},
			},
		})
	}))
	t.Cleanup(server.Close)

	llm := dashscope.NewClient("test-key")
	llm.SetBaseURL(server.URL)
	return dojo.NewManager(llm, "qwen-plus")
}

func newTestServer(t *testing.T, token string, gen RecordGenerator, extracts ExtractionReader) *Server {
	t.Helper()
	if gen == nil {
		gen = &fakeGenerator{}
	}
	if extracts == nil {
		extracts = &fakeExtracts{}
	}
	return NewServer(8787, token, gen, extracts, newDojoManager(t))
}

func doRequest(srv *Server, method, path, token string, reqBody string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(reqBody))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "", nil, nil)

	rec := doRequest(srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, "secret", nil, nil)

	// Status is unauthenticated even when a token is configured.
	rec := doRequest(srv, http.MethodGet, "/api/v1/ams/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, "secret", nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "wrong", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "secret", `{}`)
	if rec.Code == http.StatusUnauthorized {
		t.Errorf("valid token: expected pass-through, got 401")
	}
}

func TestBearerAuth_DisabledWhenUnset(t *testing.T) {
	srv := newTestServer(t, "", nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "", `{}`)
	if rec.Code == http.StatusUnauthorized {
		t.Errorf("empty configured token must disable auth, got 401")
	}
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{
		rec: record.FinalRecord{
			Profile:  "客户张先生。",
			Record:   "本次来电咨询。",
			Plan:     "后续跟进计划\n1. 回访",
			FullText: "客户张先生。\n本次来电咨询。\n后续跟进计划\n1. 回访",
			Extract:  json.RawMessage(`{"schema_version":"ams.v1"}`),
		},
	}
	srv := newTestServer(t, "", gen, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/ams/generate",
		"", `{"sessionId":"sess_1","name":"张先生","logs":"你好，想了解E5。"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if gen.payload.SessionID != "sess_1" {
		t.Errorf("expected payload to reach the pipeline, got %+v", gen.payload)
	}

	var resp record.FinalRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.FullText != gen.rec.FullText {
		t.Errorf("expected full text %q, got %q", gen.rec.FullText, resp.FullText)
	}
}

func TestGenerate_BadJSON(t *testing.T) {
	srv := newTestServer(t, "", nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerate_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing api key", dashscope.ErrMissingAPIKey, http.StatusInternalServerError},
		{"plan format", &plan.FormatError{Plan: "bad"}, http.StatusInternalServerError},
		{"retries exhausted", fmt.Errorf("%w after 3 attempts", dashscope.ErrExhausted), http.StatusBadGateway},
		{"non-json output", fmt.Errorf("stage A: %w", extract.ErrNonJSONOutput), http.StatusBadGateway},
		{"missing schema version", extract.ErrMissingSchemaVersion, http.StatusBadGateway},
		{"missing evidence", extract.ErrMissingEvidence, http.StatusBadGateway},
		{"body constraints", body.ErrConstraintUnsatisfied, http.StatusBadGateway},
		{"storage failure", errors.New("persist extraction: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, "", &fakeGenerator{err: tt.err}, nil)

			rec := doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "", `{}`)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}

			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse error body: %v", err)
			}
			if resp["error"] == "" {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestGenerate_ErrorsAreRedacted(t *testing.T) {
	gen := &fakeGenerator{
		err: errors.New("api error 401: Bearer sk-secret-token-123 rejected"),
	}
	srv := newTestServer(t, "", gen, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/ams/generate", "", `{}`)
	if strings.Contains(rec.Body.String(), "sk-secret-token-123") {
		t.Errorf("error response leaked credential: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Bearer ***") {
		t.Errorf("expected masked bearer token, got %s", rec.Body.String())
	}
}

func TestGetExtract(t *testing.T) {
	extracts := &fakeExtracts{data: map[string]json.RawMessage{
		"sess_1": json.RawMessage(`{"schema_version":"ams.v1","session_id":"sess_1"}`),
	}}
	srv := newTestServer(t, "", nil, extracts)

	rec := doRequest(srv, http.MethodGet, "/api/v1/ams/extracts/sess_1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"schema_version":"ams.v1"`) {
		t.Errorf("expected stored payload, got %s", rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/api/v1/ams/extracts/sess_missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDojoSessionFlow(t *testing.T) {
	srv := newTestServer(t, "", nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/dojo/sessions", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var started dojoSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if started.SessionID == "" || started.Reply == "" {
		t.Fatalf("expected session id and opening reply, got %+v", started)
	}

	rec = doRequest(srv, http.MethodPost,
		"/api/v1/dojo/sessions/"+started.SessionID+"/messages",
		"", `{"message":"您好，我是奥迪中心的小王。"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodDelete, "/api/v1/dojo/sessions/"+started.SessionID, "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost,
		"/api/v1/dojo/sessions/"+started.SessionID+"/messages",
		"", `{"message":"还在吗？"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after ending session, got %d", rec.Code)
	}
}

func TestDojoSendValidation(t *testing.T) {
	srv := newTestServer(t, "", nil, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/dojo/sessions/not-a-uuid/messages", "", `{"message":"hi"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id: expected 400, got %d", rec.Code)
	}

	started := doRequest(srv, http.MethodPost, "/api/v1/dojo/sessions", "", "")
	var resp dojoSessionResponse
	if err := json.Unmarshal(started.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	rec = doRequest(srv, http.MethodPost,
		"/api/v1/dojo/sessions/"+resp.SessionID+"/messages", "", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message: expected 400, got %d", rec.Code)
	}
}
