package industry

// SplitRuns divides a total run count into jobs of at most maxRuns each.
// maxRuns <= 0 means unbounded: a single job. The remainder lands in the
// last job, so sum(result) == runs and max(result) <= maxRuns always hold.
func SplitRuns(runs, maxRuns int32) []int32 {
	if runs <= 0 {
		return nil
	}
	if maxRuns <= 0 || runs <= maxRuns {
		return []int32{runs}
	}
	jobs := (runs + maxRuns - 1) / maxRuns
	out := make([]int32, 0, jobs)
	remaining := runs
	for remaining > 0 {
		n := maxRuns
		if remaining < n {
			n = remaining
		}
		out = append(out, n)
		remaining -= n
	}
	return out
}

// effectiveMaxRuns combines the blueprint's own bound with a per-blueprint
// policy cap. Zero means unbounded.
func effectiveMaxRuns(blueprintMax *int32, policyCap int32) int32 {
	max := int32(0)
	if blueprintMax != nil {
		max = *blueprintMax
	}
	if policyCap > 0 && (max == 0 || policyCap < max) {
		max = policyCap
	}
	return max
}
