// Package workflow implements the LLM execution seam (C4): building the
// generation/chat workflow documents, running them against a pluggable
// Executor with bounded per-attempt timeouts and retries, and the model
// configuration the generation/validation handlers consult.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute"
)

// Workflow, Message, Model, and Task are the shared document shapes;
// re-exported here so callers can write workflow.Workflow instead of
// reaching into internal/compute directly.
type (
	Workflow = compute.Workflow
	Message  = compute.Message
	Model    = compute.Model
	Task     = compute.Task
)

const (
	// DefaultMaxTime is the per-attempt budget used when neither a
	// workflow document nor the caller specifies one.
	DefaultMaxTime  = 50 * time.Second
	defaultMaxTime  = DefaultMaxTime
	defaultMaxSteps = 10
	// MaxRetries bounds RunWithRetries' attempts (Design Note D3).
	MaxRetries = 3
)

var (
	// ErrWorkflowFailed is returned by an Executor when the workflow ran
	// to completion but produced no usable output.
	ErrWorkflowFailed = errors.New("workflow: execution failed")
	// ErrExecutionExhausted is returned once RunWithRetries has spent
	// every retry without a successful attempt.
	ErrExecutionExhausted = errors.New("workflow: execution exhausted retries")
)

// Executor runs a Workflow against a specific Model and returns its
// final text output. This is the seam the out-of-scope model-serving
// library plugs into; HTTPExecutor below is a thin reference
// implementation of the shape only.
type Executor interface {
	Execute(ctx context.Context, wf Workflow, model Model) (string, error)
}

// RunWithRetries executes wf against model, retrying on a per-attempt
// timeout (wf's own declared budget, or fallback if unset) or
// ErrWorkflowFailed, making at most MaxRetries attempts in all.
func RunWithRetries(ctx context.Context, exec Executor, wf Workflow, model Model, fallback time.Duration) (string, error) {
	budget := wf.Budget(fallback)

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, budget)
		out, err := exec.Execute(attemptCtx, wf, model)
		cancel()

		if err == nil {
			return out, nil
		}
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrWorkflowFailed) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrExecutionExhausted, lastErr)
}

// BuildGenerationWorkflow reproduces make_generation_workflow: a single
// generation task over prompt. The workflow has no separate end task.
func BuildGenerationWorkflow(prompt string) (Workflow, time.Duration) {
	wf := Workflow{
		Config:  compute.WorkflowConfig{MaxTime: defaultMaxTime.Seconds(), MaxSteps: defaultMaxSteps},
		EntryID: "generation",
		Inputs:  map[string]any{"prompt": prompt},
		Tasks: []Task{
			{ID: "generation", Operator: "generation", Inputs: map[string]string{"prompt": "prompt"}, Outputs: []string{"result"}},
		},
	}
	return wf, defaultMaxTime
}

// BuildChatWorkflow reproduces make_chat_workflow: continues history
// with one more generation task appending prompt as the next user turn.
func BuildChatWorkflow(history []Message, prompt string) (Workflow, time.Duration) {
	wf := Workflow{
		Config:  compute.WorkflowConfig{MaxTime: defaultMaxTime.Seconds(), MaxSteps: defaultMaxSteps},
		EntryID: "generation",
		Inputs: map[string]any{
			"history": history,
			"prompt":  prompt,
		},
		Tasks: []Task{
			{ID: "generation", Operator: "generation", Inputs: map[string]string{"history": "history", "prompt": "prompt"}, Outputs: []string{"result"}},
		},
	}
	return wf, defaultMaxTime
}

// BuildValidationWorkflow builds the fixed validation task: score every
// response in generations against instruction.
func BuildValidationWorkflow(instruction string, generations []string) (Workflow, time.Duration) {
	wf := Workflow{
		Config:  compute.WorkflowConfig{MaxTime: defaultMaxTime.Seconds(), MaxSteps: defaultMaxSteps},
		EntryID: "validation",
		Inputs: map[string]any{
			"instruction": instruction,
			"generations": generations,
		},
		Tasks: []Task{
			{ID: "validation", Operator: "validation", Inputs: map[string]string{"instruction": "instruction", "generations": "generations"}, Outputs: []string{"result"}},
		},
	}
	return wf, defaultMaxTime
}

// Config holds the model list this worker is configured to run, mirrors
// DriaWorkflowsConfig's CSV-driven model matching.
type Config struct {
	models []Model
}

// NewConfig parses a comma-separated model list (the shape the `--model`
// CLI flag uses).
func NewConfig(csv string) Config {
	var models []Model
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			models = append(models, Model(part))
		}
	}
	return Config{models: models}
}

// Models returns the configured model list.
func (c Config) Models() []Model { return c.models }

// Default returns the first configured model.
func (c Config) Default() (Model, bool) {
	if len(c.models) == 0 {
		return "", false
	}
	return c.models[0], true
}

// MatchAny returns the first configured model also present in csv,
// falling back to Default with a caller-visible ok=false so the handler
// can log the fallback before proceeding (spec §4.7 step: model choice).
func (c Config) MatchAny(csv string) (Model, bool) {
	wanted := make(map[Model]struct{})
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			wanted[Model(part)] = struct{}{}
		}
	}
	for _, m := range c.models {
		if _, ok := wanted[m]; ok {
			return m, true
		}
	}
	def, _ := c.Default()
	return def, false
}

// HTTPExecutor posts {model, messages} to an OpenAI-compatible
// completions endpoint. It exists to demonstrate the Executor seam's
// shape; real model inference is out of scope for this worker.
type HTTPExecutor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPExecutor builds an HTTPExecutor against baseURL (default
// "http://localhost:8080/v1" when empty).
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}
	return &HTTPExecutor{BaseURL: baseURL, HTTPClient: &http.Client{}}
}

type chatCompletionRequest struct {
	Model    Model     `json:"model"`
	Messages []Message `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Execute sends wf's entry task's prompt/history to the completions
// endpoint and returns the single text completion.
func (e *HTTPExecutor) Execute(ctx context.Context, wf Workflow, model Model) (string, error) {
	messages := extractMessages(wf)
	body, err := json.Marshal(chatCompletionRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWorkflowFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrWorkflowFailed, resp.StatusCode)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrWorkflowFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", ErrWorkflowFailed
	}
	return out.Choices[0].Message.Content, nil
}

func extractMessages(wf Workflow) []Message {
	if instruction, ok := wf.Inputs["instruction"].(string); ok {
		generations, _ := wf.Inputs["generations"].([]string)
		content := instruction
		for i, g := range generations {
			content += fmt.Sprintf("\n\n[response %d]\n%s", i+1, g)
		}
		return []Message{{Role: "user", Content: content}}
	}
	if raw, ok := wf.Inputs["history"]; ok {
		if history, ok := raw.([]Message); ok {
			prompt, _ := wf.Inputs["prompt"].(string)
			return append(append([]Message{}, history...), Message{Role: "user", Content: prompt})
		}
	}
	prompt, _ := wf.Inputs["prompt"].(string)
	return []Message{{Role: "user", Content: prompt}}
}
