package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

type fakeChat struct {
	resp contractx.ChatResponse
	err  error
}

func (f *fakeChat) Handle(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error) {
	if f.err != nil {
		return contractx.ChatResponse{}, f.err
	}
	return f.resp, nil
}

type fakeCompute struct {
	result contractx.CapabilityResult
	err    error
}

func (f *fakeCompute) Run(ctx context.Context, category string, params map[string]any, userID string) (contractx.CapabilityResult, error) {
	if f.err != nil {
		return contractx.CapabilityResult{}, f.err
	}
	return f.result, nil
}

type fakeLogStore struct {
	mu    sync.Mutex
	saved []contractx.ChatLog
	logs  []contractx.ChatLog
	err   error
}

func (f *fakeLogStore) Save(ctx context.Context, rec contractx.ChatLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeLogStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]contractx.ChatLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.logs, nil
}

func (f *fakeLogStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func okChatResponse() contractx.ChatResponse {
	return contractx.ChatResponse{
		Result: contractx.ResultEnvelope{
			Intent:   contractx.IntentInformational,
			Category: "loan_limit",
			Payload: map[string]any{
				"answer":  "대출 한도는 소득과 신용등급에 따라 달라집니다.",
				"query":   "전세자금대출 한도",
				"sources": []string{"https://example.com/loan-guidelines"},
			},
		},
		Messages: []contractx.ChatMessage{{Role: "assistant", Content: "정보형 답변을 생성했습니다."}},
		TraceID:  "trace-abc",
		Meta:     contractx.ResponseMeta{GeneratedAt: time.Now().UTC(), Mock: true},
	}
}

func doJSON(t *testing.T, handler *Handler, method, target string, body any) (*http.Response, map[string]any) {
	t.Helper()

	app := NewApp(handler)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func TestHandleChatSuccess(t *testing.T) {
	t.Parallel()

	logs := &fakeLogStore{}
	handler := NewHandler(&fakeChat{resp: okChatResponse()}, &fakeCompute{}, logs, "1.0.0")

	resp, body := doJSON(t, handler, http.MethodPost, "/api/chat", map[string]any{
		"message": "전세자금대출 한도",
		"intent":  "informational",
		"user_id": "session-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Fatalf("expected success body, got %v", body)
	}
	if body["type"] != "informational" {
		t.Fatalf("unexpected type: %v", body["type"])
	}
	if body["category"] != "loan_limit" {
		t.Fatalf("unexpected category: %v", body["category"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %v", body)
	}
	if data["answer"] != "대출 한도는 소득과 신용등급에 따라 달라집니다." {
		t.Fatalf("unexpected answer: %v", data["answer"])
	}
	meta, ok := body["metadata"].(map[string]any)
	if !ok || meta["trace_id"] != "trace-abc" {
		t.Fatalf("unexpected metadata: %v", body["metadata"])
	}
	if meta["mock"] != true {
		t.Fatalf("mock flag missing from metadata: %v", meta)
	}

	// The chat log write is asynchronous.
	deadline := time.Now().Add(time.Second)
	for logs.savedCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logs.savedCount() != 1 {
		t.Fatalf("expected one chat log write, got %d", logs.savedCount())
	}
}

func TestHandleChatMalformedBody(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeChat{resp: okChatResponse()}, &fakeCompute{}, nil, "dev")
	app := NewApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestHandleChatErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			err:        &contractx.RequestError{TraceID: "t1", Err: contractx.ErrInvalidRequest},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "missing parameter",
			err:        &contractx.RequestError{TraceID: "t2", Err: contractx.ErrMissingParameter},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_parameter",
		},
		{
			name:       "unclassifiable",
			err:        &contractx.RequestError{TraceID: "t3", Err: contractx.ErrUnclassifiableIntent},
			wantStatus: http.StatusBadRequest,
			wantCode:   "unclassifiable_intent",
		},
		{
			name:       "mismatch",
			err:        &contractx.RequestError{TraceID: "t4", Err: contractx.ErrIntentCategoryMismatch},
			wantStatus: http.StatusBadRequest,
			wantCode:   "intent_category_mismatch",
		},
		{
			name:       "timeout",
			err:        &contractx.RequestError{TraceID: "t5", Err: &contractx.TimeoutError{Intent: contractx.IntentInformational, Elapsed: time.Second}},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "backend_timeout",
		},
		{
			name:       "backend execution",
			err:        &contractx.RequestError{TraceID: "t6", Err: &contractx.ExecutionError{Intent: contractx.IntentCalculational, Cause: errors.New("boom")}},
			wantStatus: http.StatusBadGateway,
			wantCode:   "backend_execution",
		},
		{
			name:       "unmapped",
			err:        errors.New("surprise"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := NewHandler(&fakeChat{err: tt.err}, &fakeCompute{}, nil, "dev")
			resp, body := doJSON(t, handler, http.MethodPost, "/api/chat", map[string]any{"message": "q"})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("unexpected status: %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			errBody, ok := body["error"].(map[string]any)
			if !ok {
				t.Fatalf("error body missing: %v", body)
			}
			if errBody["code"] != tt.wantCode {
				t.Fatalf("unexpected code: %v, want %s", errBody["code"], tt.wantCode)
			}
			if traceID := contractx.TraceID(tt.err); traceID != "" && body["trace_id"] != traceID {
				t.Fatalf("trace id missing from body: %v", body)
			}
		})
	}
}

func TestHandleCalc(t *testing.T) {
	t.Parallel()

	compute := &fakeCompute{
		result: contractx.CapabilityResult{
			Intent:   contractx.IntentCalculational,
			Category: "ltv",
			Calculational: &contractx.CalculationalResult{
				Values:      map[string]any{"ltv": 0.6},
				Explanation: "담보 가치 대비 대출 비율(LTV)입니다.",
			},
		},
	}
	handler := NewHandler(&fakeChat{}, compute, nil, "dev")

	resp, body := doJSON(t, handler, http.MethodPost, "/api/calc", map[string]any{
		"category": "ltv",
		"params":   map[string]any{"collateral_value": 500_000_000, "loan_amount": 300_000_000},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %v", body)
	}
	values, ok := data["values"].(map[string]any)
	if !ok || values["ltv"] != 0.6 {
		t.Fatalf("unexpected values: %v", data)
	}
}

func TestHandleCalcRequiresCategory(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeChat{}, &fakeCompute{}, nil, "dev")
	resp, body := doJSON(t, handler, http.MethodPost, "/api/calc", map[string]any{
		"params": map[string]any{"loan_amount": 1},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	errBody := body["error"].(map[string]any)
	if errBody["field"] != "category" {
		t.Fatalf("expected field=category, got %v", errBody)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeChat{}, &fakeCompute{}, nil, "1.2.3")
	resp, body := doJSON(t, handler, http.MethodGet, "/api/admin/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status field: %v", body["status"])
	}
	if body["version"] != "1.2.3" {
		t.Fatalf("unexpected version: %v", body["version"])
	}
	if _, err := time.Parse(time.RFC3339, body["time"].(string)); err != nil {
		t.Fatalf("time must be RFC3339: %v", body["time"])
	}
}

func TestHandleLogs(t *testing.T) {
	t.Parallel()

	logs := &fakeLogStore{
		logs: []contractx.ChatLog{
			{SessionID: "s1", UserMessage: "질문", BotResponse: "답변", TraceID: "t1", Intent: "informational"},
		},
	}
	handler := NewHandler(&fakeChat{}, &fakeCompute{}, logs, "dev")

	resp, body := doJSON(t, handler, http.MethodGet, "/api/admin/logs?session_id=s1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	entries, ok := body["logs"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("unexpected logs body: %v", body)
	}
}

func TestHandleLogsRequiresSessionID(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeChat{}, &fakeCompute{}, &fakeLogStore{}, "dev")
	resp, _ := doJSON(t, handler, http.MethodGet, "/api/admin/logs", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestHandleLogsUnconfiguredStore(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeChat{}, &fakeCompute{}, nil, "dev")
	resp, _ := doJSON(t, handler, http.MethodGet, "/api/admin/logs?session_id=s1", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}
