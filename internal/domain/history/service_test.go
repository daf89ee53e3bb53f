package history_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/deepchat/internal/domain/history"
	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/eventbus"
	"github.com/matiasleandrokruk/deepchat/internal/infra/sqlite"
)

func newTestService(t *testing.T) *history.Service {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("sqlite.NewDB error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp error = %v", err)
	}
	return history.NewService(db, nil)
}

func TestRecordAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Record(ctx, "task-1", "what is Go?", "a programming language"); err != nil {
		t.Fatalf("Record error = %v", err)
	}

	convs, err := svc.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations; want 1", len(convs))
	}
	if convs[0].TaskID != "task-1" || convs[0].Title != "what is Go?" {
		t.Errorf("conversation = %+v; want task-1 titled by the prompt", convs[0])
	}

	msgs, err := svc.ListMessages(ctx, convs[0].ID)
	if err != nil {
		t.Fatalf("ListMessages error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages; want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "what is Go?" {
		t.Errorf("first message = %+v; want the user prompt", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "a programming language" {
		t.Errorf("second message = %+v; want the assistant reply", msgs[1])
	}
}

func TestRecord_DuplicateTaskIsNoOp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Record(ctx, "task-1", "hello", "hi"); err != nil {
		t.Fatalf("first Record error = %v", err)
	}
	if err := svc.Record(ctx, "task-1", "hello", "hi again"); err != nil {
		t.Fatalf("duplicate Record error = %v", err)
	}

	convs, err := svc.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations error = %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("got %d conversations after a replayed event; want 1", len(convs))
	}
}

func TestRecord_LongPromptTitleTruncated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	long := strings.Repeat("long prompt ", 20)
	if err := svc.Record(ctx, "task-1", long, "ok"); err != nil {
		t.Fatalf("Record error = %v", err)
	}

	convs, _ := svc.ListConversations(ctx)
	if len(convs) != 1 {
		t.Fatalf("got %d conversations; want 1", len(convs))
	}
	if !strings.HasSuffix(convs[0].Title, "...") || len(convs[0].Title) >= len(long) {
		t.Errorf("title %q not truncated", convs[0].Title)
	}
}

func TestStart_ConsumesCompletionEvents(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New()
	svc.Start(ctx, bus)

	tk := task.NewChatTask("task-9", "bus prompt")
	bus.Publish(task.TopicCompleted, task.Completed{
		Task:   tk,
		Result: task.NewChatResult(tk.ID, "bus reply"),
	})
	// Non-chat completions must be ignored.
	up := task.NewUploadTask("up-1", "a.txt", "/tmp/a.txt", "text/plain")
	bus.Publish(task.TopicCompleted, task.Completed{
		Task:   up,
		Result: task.NewTextResult(up.ID, "a.txt", "body"),
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		convs, err := svc.ListConversations(context.Background())
		if err != nil {
			t.Fatalf("ListConversations error = %v", err)
		}
		if len(convs) == 1 && convs[0].TaskID == "task-9" {
			return
		}
		if len(convs) > 1 {
			t.Fatalf("recorded %d conversations; want only the chat one", len(convs))
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("completion event never recorded")
}
