package quiz

import "math/rand"

// GenerateOptions builds the multiple-choice set for a question: the
// correct value for kind plus up to two decoys drawn from the other
// records in the pool. The result is shuffled and may be shorter than
// three entries when both the pool and the fallback list run dry; the
// session pads it back to three.
//
// All randomness flows through rng so output is reproducible in tests.
func GenerateOptions(rng *rand.Rand, kind QuestionKind, current MemoryRecord, pool []MemoryRecord) []string {
	correct := current.Value(kind)

	// Candidate decoys: every other record's value for the same field,
	// deduplicated, excluding empties and the correct value itself.
	seen := map[string]bool{correct: true, "": true}
	var candidates []string
	for _, r := range pool {
		if r.ID == current.ID {
			continue
		}
		v := r.Value(kind)
		if seen[v] {
			continue
		}
		seen[v] = true
		candidates = append(candidates, v)
	}

	var decoys []string
	for _, i := range rng.Perm(len(candidates)) {
		if len(decoys) == 2 {
			break
		}
		decoys = append(decoys, candidates[i])
	}

	// Backfill from the fallback list until we have two decoys or the
	// list is exhausted, skipping collisions with the correct value and
	// with decoys already chosen.
	for _, fb := range fallbackOptions {
		if len(decoys) == 2 {
			break
		}
		if seen[fb] {
			continue
		}
		seen[fb] = true
		decoys = append(decoys, fb)
	}

	options := append([]string{correct}, decoys...)
	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}
