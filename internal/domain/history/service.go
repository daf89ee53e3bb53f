// Package history records completed chat exchanges in SQLite and serves the
// read-only conversation listing. It consumes task-completion events from the
// bus, so recording never sits on the task's critical path.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/eventbus"
)

// Conversation is one recorded chat task.
type Conversation struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Message is one turn within a conversation.
type Message struct {
	ID             int64  `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// Service owns the conversation tables.
type Service struct {
	db  *sql.DB
	log *slog.Logger
}

// NewService returns a Service over an already-migrated database.
func NewService(db *sql.DB, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, log: log}
}

// Start launches the consumer goroutine. It records chat completions until
// ctx is cancelled, then detaches from the bus; other result kinds pass
// through untouched.
func (s *Service) Start(ctx context.Context, bus eventbus.EventBus) {
	events := bus.Subscribe(task.TopicCompleted)
	go func() {
		defer bus.Unsubscribe(task.TopicCompleted, events)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				done, ok := evt.Payload.(task.Completed)
				if !ok {
					continue
				}
				chat, ok := done.Result.(*task.ChatResult)
				if !ok {
					continue
				}
				if err := s.Record(ctx, done.Task.ID, done.Task.Message, chat.Reply); err != nil {
					s.log.Error("recording conversation failed", "task_id", done.Task.ID, "error", err)
				}
			}
		}
	}()
}

// Record inserts one conversation with its user/assistant message pair in a
// single transaction. A task id already recorded is a no-op, so replayed
// completion events cannot duplicate history.
func (s *Service) Record(ctx context.Context, taskID, prompt, reply string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	convID := uuid.NewString()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, task_id, title) VALUES (?, ?, ?)`,
		convID, taskID, titleFrom(prompt))
	if err != nil {
		return fmt.Errorf("history: insert conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil // already recorded
	}

	for _, m := range []struct{ role, content string }{
		{"user", prompt},
		{"assistant", reply},
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, role, content) VALUES (?, ?, ?)`,
			convID, m.role, m.content); err != nil {
			return fmt.Errorf("history: insert %s message: %w", m.role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// ListConversations returns all conversations, newest first.
func (s *Service) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, title, created_at FROM conversations ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("history: list conversations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListMessages returns the messages of one conversation in insertion order.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("history: list messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// titleFrom derives a listing title from the opening of the prompt.
func titleFrom(prompt string) string {
	const maxRunes = 40
	runes := []rune(prompt)
	if len(runes) <= maxRunes {
		return prompt
	}
	return string(runes[:maxRunes]) + "..."
}
