package merging

// UnionCustomData merges incoming keys into keep with first-wins
// precedence: a key already populated on keep is never overwritten,
// incoming values only fill gaps. Empty strings count as gaps.
func UnionCustomData(keep, incoming map[string]string) map[string]string {
	result := make(map[string]string, len(keep)+len(incoming))
	for k, v := range keep {
		result[k] = v
	}
	for k, v := range incoming {
		if existing, ok := result[k]; ok && existing != "" {
			continue
		}
		if v == "" {
			continue
		}
		result[k] = v
	}
	return result
}

// UnionSources appends incoming sources not already present, keeping
// the keep person's ordering first.
func UnionSources(keep, incoming []string) []string {
	result := make([]string, 0, len(keep)+len(incoming))
	seen := make(map[string]bool, len(keep)+len(incoming))
	for _, s := range keep {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	for _, s := range incoming {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		result = append(result, s)
	}
	return result
}
