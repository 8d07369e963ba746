package compute

// ValidationResult is one validator's judgment of a single generation
// response, matching the original four-field grading rubric.
type ValidationResult struct {
	Helpfulness          int    `json:"helpfulness"`
	InstructionFollowing int    `json:"instruction_following"`
	Truthfulness         int    `json:"truthfulness"`
	FinalScore           int    `json:"final_score"`
	Rationale            string `json:"rationale"`
}

// finalScoreTable projects the clamped 1..=5 rubric score onto the
// on-chain uint8 scale the Coordinator stores. The table is strictly
// increasing but not evenly spaced.
var finalScoreTable = map[int]uint8{
	1: 1,
	2: 64,
	3: 85,
	4: 127,
	5: 255,
}

// FinalScoreToSolidity clamps score into the contractual 1..=5 range —
// an LLM can emit a final_score outside the rubric as noise, and that
// is never fatal — then projects it onto its on-chain uint8
// representation.
func FinalScoreToSolidity(score int) uint8 {
	switch {
	case score < 1:
		score = 1
	case score > 5:
		score = 5
	}
	return finalScoreTable[score]
}
