package task

// ProgressEvent is one message on a task's subscriber channel. Intermediate
// stage events carry Progress and Status only; the terminal event additionally
// carries the result payload (Reply for chat, Type/FileName/Content for
// uploads) and a failure event carries Error.
type ProgressEvent struct {
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Type     string `json:"type,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Content  string `json:"content,omitempty"`
	Reply    string `json:"reply,omitempty"`
}
