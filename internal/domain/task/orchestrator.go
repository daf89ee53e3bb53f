package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/deepchat/internal/infra/eventbus"
	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
	"github.com/matiasleandrokruk/deepchat/internal/infra/runstore"
)

// TopicCompleted is published on the event bus for every task that reaches a
// persisted result. The history recorder consumes it.
const TopicCompleted = "task.completed"

// Completed is the payload published under TopicCompleted.
type Completed struct {
	Task   *Task
	Result Result
}

// DocumentProcessor turns an upload task into a Result. Soft failures
// (unreadable PDF, summary timeout) are expressed as warning results, not
// errors; an error return fails the task.
type DocumentProcessor interface {
	Process(ctx context.Context, t *Task) (Result, error)
}

// Options bound the orchestrator's waits. Zero values select the defaults.
type Options struct {
	// SubscriberWaitChat is how long a chat run waits for a subscriber to
	// attach before proceeding without one.
	SubscriberWaitChat time.Duration
	// SubscriberWaitUpload is the same bound for upload runs, shorter since
	// upload clients usually connect before submitting.
	SubscriberWaitUpload time.Duration
	// StagePause is the delay between stages, so a live subscriber sees a
	// progressing bar instead of a burst. A negative value disables pausing;
	// tests use that.
	StagePause time.Duration
	// ChatTimeout bounds one chat completion round-trip.
	ChatTimeout time.Duration
	// ProcessTimeout bounds document processing for one task.
	ProcessTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SubscriberWaitChat <= 0 {
		o.SubscriberWaitChat = 10 * time.Second
	}
	if o.SubscriberWaitUpload <= 0 {
		o.SubscriberWaitUpload = time.Second
	}
	if o.StagePause == 0 {
		o.StagePause = 500 * time.Millisecond
	}
	if o.ChatTimeout <= 0 {
		o.ChatTimeout = 2 * time.Minute
	}
	if o.ProcessTimeout <= 0 {
		o.ProcessTimeout = 5 * time.Minute
	}
	return o
}

// Deps are the orchestrator's collaborators, injected by the caller.
type Deps struct {
	Tasks    *Registry
	Subs     *Subscribers
	Store    *runstore.Store
	Provider llm.Provider
	Docs     DocumentProcessor
	Bus      eventbus.EventBus
	Log      *slog.Logger
}

// Orchestrator drives a task from submission to a persisted result, one
// goroutine per task.
type Orchestrator struct {
	tasks *Registry
	subs  *Subscribers
	store *runstore.Store
	llm   llm.Provider
	docs  DocumentProcessor
	bus   eventbus.EventBus
	opts  Options
	log   *slog.Logger
}

// NewOrchestrator wires an Orchestrator from its dependencies.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		tasks: deps.Tasks,
		subs:  deps.Subs,
		store: deps.Store,
		llm:   deps.Provider,
		docs:  deps.Docs,
		bus:   deps.Bus,
		opts:  opts.withDefaults(),
		log:   log,
	}
}

// StartChat registers a chat task and spawns its run. An empty id gets a
// generated one. Re-submitting the id of a live task attaches to that run
// instead of spawning a duplicate; the returned id is authoritative.
func (o *Orchestrator) StartChat(id, message string) string {
	if id == "" {
		id = uuid.NewString()
	}
	t, attached := o.tasks.Put(NewChatTask(id, message))
	if attached {
		o.log.Info("duplicate chat submission attached to live task", "task_id", t.ID)
		return t.ID
	}
	go o.run(t)
	return t.ID
}

// StartUpload registers an upload task for an already-stored file and spawns
// its run, with the same idempotent-attach behavior as StartChat.
func (o *Orchestrator) StartUpload(id, fileName, filePath, contentType string) string {
	if id == "" {
		id = uuid.NewString()
	}
	t, attached := o.tasks.Put(NewUploadTask(id, fileName, filePath, contentType))
	if attached {
		o.log.Info("duplicate upload submission attached to live task", "task_id", t.ID)
		return t.ID
	}
	go o.run(t)
	return t.ID
}

// RecoverChat re-issues the LLM call for a still-running chat task so the
// polling endpoint can answer synchronously, and persists the result.
func (o *Orchestrator) RecoverChat(ctx context.Context, taskID string) (Result, error) {
	t, ok := o.tasks.Get(taskID)
	if !ok || t.Kind != KindChat || t.Message == "" {
		return nil, fmt.Errorf("task %s is not a recoverable chat task", taskID)
	}
	callCtx, cancel := context.WithTimeout(ctx, o.opts.ChatTimeout)
	defer cancel()
	resp, err := o.llm.ChatCompletion(callCtx, llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: t.Message}},
	})
	if err != nil {
		return nil, fmt.Errorf("recover chat %s: %w", taskID, err)
	}
	res := NewChatResult(taskID, resp.Content)
	if err := o.store.Put(taskID, runstore.KindGeneral, res); err != nil {
		return nil, err
	}
	return res, nil
}

// run is the per-task goroutine. Stage order and stop checks mirror the
// progress contract: stage N is only reported after its side effects, and a
// stop is honored between stages with nothing persisted.
func (o *Orchestrator) run(t *Task) {
	defer t.finish()

	if !o.awaitSubscriber(t) {
		o.log.Info("task stopped before processing began", "task_id", t.ID)
		return
	}

	rep := NewReporter(t.ID, o.subs, o.log)

	rep.Advance() // Initialization
	if o.pauseOrStop(t) {
		return
	}

	rep.Advance() // Parsing file
	if t.Kind == KindUpload && t.ContentType == "application/pdf" {
		rep.Notify(ProgressEvent{
			Progress: 40,
			Status:   "Processing PDF file...",
			Message:  "PDF processing may take a while. Please be patient. Large PDF files may take several minutes.",
		})
	}
	if o.pauseOrStop(t) {
		return
	}

	rep.Advance() // Calling API
	result, err := o.produce(t)
	if err != nil {
		o.fail(t, rep, err)
		return
	}
	if o.pauseOrStop(t) {
		return
	}

	rep.Advance() // Generating response
	if o.pauseOrStop(t) {
		return
	}

	if err := o.persist(t, result); err != nil {
		o.fail(t, rep, err)
		return
	}

	rep.Complete(result.Event()) // Completion, with payload

	if _, ok := o.subs.Get(t.ID); !ok {
		// No one heard the terminal event; flag the result for pollers.
		if err := o.store.MarkReady(t.ID); err != nil {
			o.log.Warn("marking result ready failed", "task_id", t.ID, "error", err)
		}
	}

	if o.bus != nil {
		o.bus.Publish(TopicCompleted, Completed{Task: t, Result: result})
	}
	o.log.Info("task completed", "task_id", t.ID, "kind", t.Kind, "result", result.ResultKind())
}

// produce computes the task's result: one LLM round-trip for chat, document
// processing under a bounded context for uploads.
func (o *Orchestrator) produce(t *Task) (Result, error) {
	switch t.Kind {
	case KindChat:
		ctx, cancel := context.WithTimeout(context.Background(), o.opts.ChatTimeout)
		defer cancel()
		resp, err := o.llm.ChatCompletion(ctx, llm.ChatRequest{
			Messages: []llm.Message{{Role: "user", Content: t.Message}},
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		return NewChatResult(t.ID, resp.Content), nil
	case KindUpload:
		ctx, cancel := context.WithTimeout(context.Background(), o.opts.ProcessTimeout)
		defer cancel()
		return o.docs.Process(ctx, t)
	default:
		return nil, fmt.Errorf("unknown task kind %q", t.Kind)
	}
}

// persist writes the result to the run store. A successful PDF summary is
// written under its kind-specific name as well, so the result endpoint's
// preferred lookup finds it first.
func (o *Orchestrator) persist(t *Task, result Result) error {
	if pdf, ok := result.(*PDFResult); ok {
		if err := o.store.Put(t.ID, runstore.KindPDF, pdf); err != nil {
			return fmt.Errorf("persist pdf result: %w", err)
		}
	}
	if err := o.store.Put(t.ID, runstore.KindGeneral, result); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	return nil
}

// fail persists a terminal error result and reports the failure. The
// persisted record lets polling clients resolve instead of spinning on
// "processing" forever.
func (o *Orchestrator) fail(t *Task, rep *Reporter, cause error) {
	o.log.Error("task failed", "task_id", t.ID, "kind", t.Kind, "error", cause)
	res := NewErrorResult(t.ID, cause.Error())
	if err := o.store.Put(t.ID, runstore.KindGeneral, res); err != nil {
		o.log.Error("persisting failure result failed", "task_id", t.ID, "error", err)
	}
	rep.Fail(cause)
}

// awaitSubscriber blocks until a subscriber attaches, the wait bound expires
// (the task proceeds without one) or the task is stopped. It returns false
// only for a stop.
func (o *Orchestrator) awaitSubscriber(t *Task) bool {
	wait := o.opts.SubscriberWaitUpload
	if t.Kind == KindChat {
		wait = o.opts.SubscriberWaitChat
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-o.subs.Attached(t.ID):
		return true
	case <-t.StopSignal():
		return false
	case <-timer.C:
		o.log.Info("no subscriber attached in time, continuing in background", "task_id", t.ID)
		return true
	}
}

// pauseOrStop applies the inter-stage pause and reports whether the task was
// stopped meanwhile. A stopped run leaves no result behind.
func (o *Orchestrator) pauseOrStop(t *Task) bool {
	if o.opts.StagePause <= 0 {
		return t.Stopped()
	}
	timer := time.NewTimer(o.opts.StagePause)
	defer timer.Stop()
	select {
	case <-t.StopSignal():
		return true
	case <-timer.C:
		return t.Stopped()
	}
}
