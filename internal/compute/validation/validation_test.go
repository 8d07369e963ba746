package validation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute/workflow"
)

type fakeExecutor struct {
	out string
	err error
}

func (f fakeExecutor) Execute(ctx context.Context, wf workflow.Workflow, model workflow.Model) (string, error) {
	return f.out, f.err
}

func TestScoreParsesDoublyEncodedResults(t *testing.T) {
	result := map[string]any{
		"helpfulness":           5,
		"instruction_following": 5,
		"truthfulness":          5,
		"final_score":           5,
		"rationale":             "correct answer",
	}
	encoded, _ := json.Marshal(result)
	envelope, _ := json.Marshal([]string{string(encoded)})

	results, err := score(context.Background(), fakeExecutor{out: string(envelope)}, "What is 2+2?", []string{"4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].FinalScore != 5 {
		t.Errorf("FinalScore = %d, want 5", results[0].FinalScore)
	}
}

func TestScoreAllowsOutOfRangeFinalScore(t *testing.T) {
	result := map[string]any{
		"helpfulness":           1,
		"instruction_following": 1,
		"truthfulness":          1,
		"final_score":           9,
		"rationale":             "bad",
	}
	encoded, _ := json.Marshal(result)
	envelope, _ := json.Marshal([]string{string(encoded)})

	results, err := score(context.Background(), fakeExecutor{out: string(envelope)}, "instruction", []string{"gen"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].FinalScore != 9 {
		t.Errorf("FinalScore = %d, want 9 (unclamped in the stored result)", results[0].FinalScore)
	}
}
