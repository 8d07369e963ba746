// Package compute holds the types shared across the input resolver,
// workflow executor, and generation/validation handlers.
package compute

// GenerationRequest is the closed sum type a resolved task input decodes
// into: a full workflow document, a chat history to continue, or a bare
// prompt string. Go has no native enum/union, so the set is closed with
// an unexported marker method implemented only by the three variants
// below.
type GenerationRequest interface {
	isGenerationRequest()
}

// WorkflowRequest is a fully specified workflow document supplied as
// task input.
type WorkflowRequest struct {
	Workflow Workflow
}

func (WorkflowRequest) isGenerationRequest() {}

// ChatHistoryRequest references a prior task's output as conversation
// history to continue with one more user turn (Content). HistoryID==0
// means there is no prior history.
type ChatHistoryRequest struct {
	HistoryID uint64 `json:"history_id"`
	Content   string `json:"content"`
}

func (ChatHistoryRequest) isGenerationRequest() {}

// StringRequest is a bare prompt string, the fallback when input
// matches neither a workflow document nor a chat-history object.
type StringRequest struct {
	Prompt string
}

func (StringRequest) isGenerationRequest() {}
