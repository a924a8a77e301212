package recommend

import (
	"fmt"
	"strings"
)

// Song is the read-only attribute view the engine scores on. An empty or
// whitespace-only string and a nil pointer both mean the attribute was never
// entered.
type Song struct {
	ID         int64
	Genre      string
	TempoBPM   *int
	Key        string
	Difficulty *int
}

// Result is one recommended candidate with the score breakdown. It is built
// fresh per call and never persisted.
type Result struct {
	SongID  int64    `json:"songId"`
	Score   float64  `json:"compatibilityScore"`
	Details []string `json:"compatibilityDetails"`
}

// Component weights. The key component only participates when both songs
// declare a key; the final score divides by the sum of present weights, so a
// missing key redistributes its weight across the other components instead of
// penalizing the pair.
const (
	tempoWeight      = 0.35
	genreWeight      = 0.25
	keyWeight        = 0.20
	difficultyWeight = 0.20
)

// Decay thresholds: proximity reaches zero at these absolute differences.
const (
	tempoDecayBPM        = 60
	difficultyDecaySteps = 4
)

// Score computes the compatibility between a reference song and one candidate.
// It returns a score in [0, 100] and one detail line per component in the
// fixed order tempo, genre, key, difficulty. The key line is only present when
// both songs declare a key, so the list always has three or four entries.
func Score(reference, candidate Song) (float64, []string) {
	details := make([]string, 0, 4)

	var weighted, weightSum float64

	tempoScore := 0.0
	if reference.TempoBPM != nil && candidate.TempoBPM != nil {
		diff := absInt(*reference.TempoBPM - *candidate.TempoBPM)
		tempoScore = proximity(diff, tempoDecayBPM)
		details = append(details, fmt.Sprintf("Tempo: %d→%d BPM, difference of %d", *reference.TempoBPM, *candidate.TempoBPM, diff))
	} else {
		details = append(details, "Tempo: unknown")
	}
	weighted += tempoWeight * tempoScore
	weightSum += tempoWeight

	genreScore := 0.0
	refGenre := strings.TrimSpace(reference.Genre)
	candGenre := strings.TrimSpace(candidate.Genre)
	switch {
	case refGenre == "" || candGenre == "":
		details = append(details, "Genre: unknown")
	case strings.EqualFold(refGenre, candGenre):
		genreScore = 1.0
		details = append(details, fmt.Sprintf("Genre: both %s, match", refGenre))
	default:
		details = append(details, fmt.Sprintf("Genre: %s vs %s, no match", refGenre, candGenre))
	}
	weighted += genreWeight * genreScore
	weightSum += genreWeight

	refKey := strings.TrimSpace(reference.Key)
	candKey := strings.TrimSpace(candidate.Key)
	if refKey != "" && candKey != "" {
		keyScore := 0.0
		if strings.EqualFold(refKey, candKey) {
			keyScore = 1.0
			details = append(details, fmt.Sprintf("Key: both %s, match", refKey))
		} else {
			details = append(details, fmt.Sprintf("Key: %s vs %s, no match", refKey, candKey))
		}
		weighted += keyWeight * keyScore
		weightSum += keyWeight
	}

	difficultyScore := 0.0
	if reference.Difficulty != nil && candidate.Difficulty != nil {
		diff := absInt(*reference.Difficulty - *candidate.Difficulty)
		difficultyScore = proximity(diff, difficultyDecaySteps)
		switch diff {
		case 0:
			details = append(details, fmt.Sprintf("Difficulty: %d→%d, exact match", *reference.Difficulty, *candidate.Difficulty))
		case 1:
			details = append(details, fmt.Sprintf("Difficulty: %d→%d, close match", *reference.Difficulty, *candidate.Difficulty))
		default:
			details = append(details, fmt.Sprintf("Difficulty: %d→%d, difference of %d", *reference.Difficulty, *candidate.Difficulty, diff))
		}
	} else {
		details = append(details, "Difficulty: unknown")
	}
	weighted += difficultyWeight * difficultyScore
	weightSum += difficultyWeight

	score := 100 * weighted / weightSum
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, details
}

// proximity maps an absolute difference to [0, 1], linearly decaying from 1
// at zero difference to 0 at the span or beyond.
func proximity(diff, span int) float64 {
	if diff >= span {
		return 0
	}
	return 1 - float64(diff)/float64(span)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
