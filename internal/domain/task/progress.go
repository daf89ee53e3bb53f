package task

import (
	"fmt"
	"log/slog"
)

// Stages is the fixed pipeline every task walks through. One progress event
// is emitted per stage; the final stage carries the result payload.
var Stages = []string{
	"Initialization",
	"Parsing file",
	"Calling API",
	"Generating response",
	"Completion",
}

// Reporter emits per-stage progress for one task. Delivery is best-effort: a
// missing subscriber skips the send and the task keeps running in the
// background; a dead channel discovered during a send is deregistered.
//
// Progress is monotone non-decreasing by construction: Advance saturates at
// the stage count and the terminal event is always 100.
type Reporter struct {
	taskID  string
	subs    *Subscribers
	stages  []string
	current int
	log     *slog.Logger
}

// NewReporter returns a Reporter for taskID delivering through subs.
func NewReporter(taskID string, subs *Subscribers, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{taskID: taskID, subs: subs, stages: Stages, log: log}
}

// Advance enters the next stage and emits its progress event.
func (r *Reporter) Advance() {
	if r.current < len(r.stages) {
		r.current++
	}
	r.deliver(ProgressEvent{
		Progress: r.percent(),
		Status:   fmt.Sprintf("Stage: %s", r.stages[r.current-1]),
	})
}

// Notify emits an extra event within the current stage, for long-running
// steps such as PDF parsing. It does not advance the stage.
func (r *Reporter) Notify(evt ProgressEvent) {
	if evt.Progress < r.percent() {
		evt.Progress = r.percent()
	}
	r.deliver(evt)
}

// Complete jumps to the final stage and emits the terminal event carrying the
// result payload. Status defaults to "Done" when the payload sets none.
func (r *Reporter) Complete(evt ProgressEvent) {
	r.current = len(r.stages)
	evt.Progress = 100
	if evt.Status == "" {
		evt.Status = "Done"
	}
	r.deliver(evt)
}

// Fail emits the terminal failure event, naming the stage that was underway.
func (r *Reporter) Fail(err error) {
	stage := r.stages[len(r.stages)-1]
	if r.current < len(r.stages) {
		stage = r.stages[r.current]
	}
	r.current = len(r.stages)
	r.deliver(ProgressEvent{
		Progress: 100,
		Status:   "Failed",
		Error:    fmt.Sprintf("%s error: %v", stage, err),
	})
}

func (r *Reporter) percent() int {
	return r.current * 100 / len(r.stages)
}

func (r *Reporter) deliver(evt ProgressEvent) {
	ch, ok := r.subs.Get(r.taskID)
	if !ok {
		r.log.Debug("no subscriber for progress event, continuing in background",
			"task_id", r.taskID, "progress", evt.Progress, "status", evt.Status)
		return
	}
	if !ch.Open() {
		r.subs.Unregister(r.taskID, ch)
		return
	}
	if err := ch.Send(evt); err != nil {
		r.log.Debug("dropping dead subscriber channel",
			"task_id", r.taskID, "error", err)
		r.subs.Unregister(r.taskID, ch)
	}
}
