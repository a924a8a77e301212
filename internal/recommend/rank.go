package recommend

import "sort"

// DefaultMaxResults is the recommendation count used when the caller did not
// ask for a specific one.
const DefaultMaxResults = 5

// Rank scores every eligible candidate against the reference song and returns
// the top maxResults, ordered by score descending. Exact ties order by
// ascending song ID so the output is reproducible across runs. The reference
// song's own ID and every ID in exclude are dropped from the pool; a
// non-positive maxResults yields an empty list. The returned slice is never
// nil.
func Rank(reference Song, candidates []Song, exclude map[int64]struct{}, maxResults int) []Result {
	results := make([]Result, 0, len(candidates))
	if maxResults <= 0 {
		return results
	}

	for _, candidate := range candidates {
		if candidate.ID == reference.ID {
			continue
		}
		if _, skip := exclude[candidate.ID]; skip {
			continue
		}
		score, details := Score(reference, candidate)
		results = append(results, Result{
			SongID:  candidate.ID,
			Score:   score,
			Details: details,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SongID < results[j].SongID
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return results
}
