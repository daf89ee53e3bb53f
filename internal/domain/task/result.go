package task

// Result is the tagged union of terminal task outcomes. Concrete results
// marshal to the JSON persisted in the run store, and Event() renders the
// terminal progress message delivered to a live subscriber.
type Result interface {
	// ResultKind names the variant ("chat", "text", "pdf", "pdf_error",
	// "pdf_timeout", "pdf_unsupported", "error").
	ResultKind() string
	// Event is the terminal progress payload for this result.
	Event() ProgressEvent
}

// ChatResult is a successful chat completion.
type ChatResult struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
	TaskID string `json:"task_id"`
}

// NewChatResult wraps an assistant reply.
func NewChatResult(taskID, reply string) *ChatResult {
	return &ChatResult{Status: "success", Reply: reply, TaskID: taskID}
}

func (r *ChatResult) ResultKind() string { return "chat" }

func (r *ChatResult) Event() ProgressEvent {
	return ProgressEvent{Status: "Done", Reply: r.Reply}
}

// TextResult is the decoded content of an uploaded plain-text file.
type TextResult struct {
	Status   string `json:"status"`
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func NewTextResult(taskID, fileName, content string) *TextResult {
	return &TextResult{Status: "success", Type: "text", TaskID: taskID, FileName: fileName, Content: content}
}

func (r *TextResult) ResultKind() string { return r.Type }

func (r *TextResult) Event() ProgressEvent {
	return ProgressEvent{Status: "Done", Type: r.Type, FileName: r.FileName, Content: r.Content}
}

// PDFResult is a successfully generated structured abstract of an uploaded PDF.
type PDFResult struct {
	Status   string `json:"status"`
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func NewPDFResult(taskID, fileName, content string) *PDFResult {
	return &PDFResult{Status: "success", Type: "pdf", TaskID: taskID, FileName: fileName, Content: content}
}

func (r *PDFResult) ResultKind() string { return r.Type }

func (r *PDFResult) Event() ProgressEvent {
	return ProgressEvent{Status: "Done", Type: r.Type, FileName: r.FileName, Content: r.Content}
}

// PDFErrorResult is a soft failure while processing a PDF. It is a warning,
// not a task failure; the content carries a human-readable explanation.
type PDFErrorResult struct {
	Status   string `json:"status"`
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func NewPDFErrorResult(taskID, fileName, content string) *PDFErrorResult {
	return &PDFErrorResult{Status: "warning", Type: "pdf_error", TaskID: taskID, FileName: fileName, Content: content}
}

func (r *PDFErrorResult) ResultKind() string { return r.Type }

func (r *PDFErrorResult) Event() ProgressEvent {
	return ProgressEvent{Status: "PDF processing notice", Type: r.Type, FileName: r.FileName, Content: r.Content}
}

// PDFTimeoutResult is returned when summary generation exceeded its bound.
// Background work may still complete and land in the run store later.
type PDFTimeoutResult struct {
	Status   string `json:"status"`
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func NewPDFTimeoutResult(taskID, fileName string) *PDFTimeoutResult {
	return &PDFTimeoutResult{
		Status:   "warning",
		Type:     "pdf_timeout",
		TaskID:   taskID,
		FileName: fileName,
		Content:  "PDF processing is taking longer than expected; the system will continue in the background. Please try again later or upload a smaller file.",
	}
}

func (r *PDFTimeoutResult) ResultKind() string { return r.Type }

func (r *PDFTimeoutResult) Event() ProgressEvent {
	return ProgressEvent{Status: "PDF processing took longer", Type: r.Type, FileName: r.FileName, Content: r.Content}
}

// PDFUnsupportedResult is returned when PDF handling is unavailable.
type PDFUnsupportedResult struct {
	Status   string `json:"status"`
	Type     string `json:"type"`
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func NewPDFUnsupportedResult(taskID, fileName, content string) *PDFUnsupportedResult {
	return &PDFUnsupportedResult{Status: "warning", Type: "pdf_unsupported", TaskID: taskID, FileName: fileName, Content: content}
}

func (r *PDFUnsupportedResult) ResultKind() string { return r.Type }

func (r *PDFUnsupportedResult) Event() ProgressEvent {
	return ProgressEvent{Status: "PDF functionality limited", Type: r.Type, FileName: r.FileName, Content: r.Content}
}

// ErrorResult is persisted for a failed run so that polling clients get a
// terminal answer instead of an endless "processing".
type ErrorResult struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
	Err    string `json:"error"`
}

func NewErrorResult(taskID, errMsg string) *ErrorResult {
	return &ErrorResult{Status: "error", TaskID: taskID, Err: errMsg}
}

func (r *ErrorResult) ResultKind() string { return "error" }

func (r *ErrorResult) Event() ProgressEvent {
	return ProgressEvent{Status: "Failed", Error: r.Err}
}
