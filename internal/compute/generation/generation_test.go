package generation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute"
	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
)

type fakeExecutor struct {
	out string
	err error
}

func (f fakeExecutor) Execute(ctx context.Context, wf workflow.Workflow, model workflow.Model) (string, error) {
	return f.out, f.err
}

func TestExecuteStringRequest(t *testing.T) {
	out, err := execute(context.Background(), nil, nil, fakeExecutor{out: "4"}, "gpt-4o", compute.StringRequest{Prompt: "2+2?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "4" {
		t.Errorf("out = %q, want 4", out)
	}
}

func TestExecuteWorkflowRequest(t *testing.T) {
	wf := workflow.Workflow{EntryID: "t1", Tasks: []workflow.Task{{ID: "t1", Operator: "generation"}}}
	out, err := execute(context.Background(), nil, nil, fakeExecutor{out: "done"}, "gpt-4o", compute.WorkflowRequest{Workflow: wf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done" {
		t.Errorf("out = %q, want done", out)
	}
}

func TestExecuteChatHistoryWithNoPriorHistory(t *testing.T) {
	req := compute.ChatHistoryRequest{HistoryID: 0, Content: "hello"}
	out, err := execute(context.Background(), nil, nil, fakeExecutor{out: "hi there"}, "gpt-4o", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var history []compute.Message
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("output should be a serialized history, got %q: %v", out, err)
	}
	if len(history) != 1 || history[0].Role != "assistant" || history[0].Content != "hi there" {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestExecuteUnknownRequestType(t *testing.T) {
	_, err := execute(context.Background(), nil, nil, fakeExecutor{}, "gpt-4o", nil)
	if err == nil {
		t.Fatal("expected error for nil/unknown request type")
	}
}
