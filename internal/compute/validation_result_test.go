package compute

import "testing"

func TestFinalScoreToSolidityMonotonic(t *testing.T) {
	prev := uint8(0)
	for score := 1; score <= 5; score++ {
		got := FinalScoreToSolidity(score)
		if score > 1 && got <= prev {
			t.Errorf("score %d mapped to %d, not strictly greater than previous %d", score, got, prev)
		}
		prev = got
	}
}

func TestFinalScoreToSolidityClampsOutOfRange(t *testing.T) {
	cases := map[int]uint8{
		0:   1,
		-1:  1,
		6:   255,
		100: 255,
	}
	for score, want := range cases {
		if got := FinalScoreToSolidity(score); got != want {
			t.Errorf("score %d: got %d, want %d (clamped)", score, got, want)
		}
	}
}
