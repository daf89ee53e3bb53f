package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/runstore"
)

type stubRecoverer struct {
	res task.Result
	err error
}

func (s *stubRecoverer) RecoverChat(context.Context, string) (task.Result, error) {
	return s.res, s.err
}

func resultFixture(t *testing.T, recover ChatRecoverer) (*chi.Mux, *runstore.Store, *task.Registry) {
	t.Helper()
	store := runstore.New(t.TempDir())
	tasks := task.NewRegistry()
	h := NewResultHandler(store, tasks, recover, nil)
	r := chi.NewRouter()
	r.Get("/api/result/{task_id}", h.Result)
	return r, store, tasks
}

func getResult(t *testing.T, r http.Handler, taskID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/result/"+taskID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestResult_StoredResultReturnedVerbatim(t *testing.T) {
	r, store, _ := resultFixture(t, &stubRecoverer{err: errors.New("unused")})
	if err := store.Put("t1", runstore.KindGeneral, task.NewChatResult("t1", "stored reply")); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	rec := getResult(t, r, "t1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "reply").String(); got != "stored reply" {
		t.Errorf("reply = %q; want the stored one", got)
	}
}

func TestResult_UnknownTaskIs404(t *testing.T) {
	r, _, _ := resultFixture(t, &stubRecoverer{err: errors.New("unused")})

	if rec := getResult(t, r, "nope"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
}

func TestResult_StoppedTaskReported(t *testing.T) {
	r, _, tasks := resultFixture(t, &stubRecoverer{err: errors.New("unused")})
	tk := task.NewChatTask("t2", "hello")
	tasks.Put(tk)
	tk.Stop()

	rec := getResult(t, r, "t2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if got := gjson.Get(rec.Body.String(), "status").String(); got != "stopped" {
		t.Errorf("status field = %q; want %q", got, "stopped")
	}
}

func TestResult_InFlightUploadIsProcessing(t *testing.T) {
	r, _, tasks := resultFixture(t, &stubRecoverer{err: errors.New("unused")})
	tasks.Put(task.NewUploadTask("t3", "a.pdf", "/tmp/a.pdf", "application/pdf"))

	rec := getResult(t, r, "t3")
	body := rec.Body.String()
	if got := gjson.Get(body, "status").String(); got != "processing" {
		t.Errorf("status = %q; want %q", got, "processing")
	}
	if got := gjson.Get(body, "task_type").String(); got != "upload" {
		t.Errorf("task_type = %q; want %q", got, "upload")
	}
}

func TestResult_InFlightChatRecoversSynchronously(t *testing.T) {
	r, _, tasks := resultFixture(t, &stubRecoverer{res: task.NewChatResult("t4", "recovered")})
	tasks.Put(task.NewChatTask("t4", "pending question"))

	rec := getResult(t, r, "t4")
	if got := gjson.Get(rec.Body.String(), "reply").String(); got != "recovered" {
		t.Errorf("reply = %q; want the recovered one", got)
	}
}

func TestResult_RecoveryFailureFallsBackToProcessing(t *testing.T) {
	r, _, tasks := resultFixture(t, &stubRecoverer{err: errors.New("llm down")})
	tasks.Put(task.NewChatTask("t5", "pending question"))

	rec := getResult(t, r, "t5")
	if got := gjson.Get(rec.Body.String(), "status").String(); got != "processing" {
		t.Errorf("status = %q; want %q", got, "processing")
	}
}
