package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
)

type stubTestProvider struct {
	reply string
	err   error
}

func (p *stubTestProvider) ChatCompletion(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{Content: p.reply}, nil
}

func (p *stubTestProvider) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{ID: "deepseek-chat", Provider: "openai-compatible", BaseURL: "https://api.example.com/v1"}
}

func (p *stubTestProvider) HealthCheck(context.Context) error { return nil }

func TestSelfTest_Success(t *testing.T) {
	dirs := SelfTestDirs{Uploads: t.TempDir(), Runs: t.TempDir(), Cache: t.TempDir()}
	h := NewSelfTestHandler(&stubTestProvider{reply: "API test successful"}, dirs)

	rec := httptest.NewRecorder()
	h.Test(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body := rec.Body.String()
	if got := gjson.Get(body, "status").String(); got != "success" {
		t.Errorf("status = %q; want success", got)
	}
	if got := gjson.Get(body, "server_info.api_call_status").String(); got != "success" {
		t.Errorf("api_call_status = %q; want success", got)
	}
	if !gjson.Get(body, "server_info.upload_dir_exists").Bool() {
		t.Error("upload_dir_exists = false for an existing directory")
	}
	if !gjson.Get(body, "server_info.api_response_time_ms").Exists() {
		t.Error("missing api_response_time_ms")
	}
}

func TestSelfTest_ProviderFailure(t *testing.T) {
	dirs := SelfTestDirs{Uploads: "/nonexistent/uploads", Runs: t.TempDir(), Cache: t.TempDir()}
	h := NewSelfTestHandler(&stubTestProvider{err: errors.New("connection refused")}, dirs)

	rec := httptest.NewRecorder()
	h.Test(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	body := rec.Body.String()
	if got := gjson.Get(body, "status").String(); got != "error" {
		t.Errorf("status = %q; want error", got)
	}
	if got := gjson.Get(body, "server_info.api_call_status").String(); got != "failed" {
		t.Errorf("api_call_status = %q; want failed", got)
	}
	if gjson.Get(body, "server_info.upload_dir_exists").Bool() {
		t.Error("upload_dir_exists = true for a missing directory")
	}
}
