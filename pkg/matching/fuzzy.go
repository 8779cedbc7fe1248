package matching

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizers"
)

// Signal weights for the fuzzy composite score. Name similarity
// dominates; location is a weak corroborating signal.
const (
	weightName     = 1.0
	weightEmail    = 0.8
	weightPhone    = 0.6
	weightLocation = 0.3
)

// FuzzyMatcherConfig tunes the fuzzy matcher.
type FuzzyMatcherConfig struct {
	// Threshold is the minimum composite score a pair must reach.
	Threshold float64
	// MaxConfidence caps fuzzy confidences so they always rank below
	// deterministic matches.
	MaxConfidence float64
	// BlockingEnabled restricts comparisons to people sharing a
	// phonetic last-name key, bounding cost on large workspaces.
	BlockingEnabled bool
}

func DefaultFuzzyMatcherConfig() FuzzyMatcherConfig {
	return FuzzyMatcherConfig{
		Threshold:       0.75,
		MaxConfidence:   0.95,
		BlockingEnabled: false,
	}
}

// FuzzyMatcher scores all unordered pairs of people on combined
// name/email/phone/location similarity. Missing fields are excluded
// from the weighted average rather than penalized.
type FuzzyMatcher struct {
	scorer *Scorer
	config FuzzyMatcherConfig
}

func NewFuzzyMatcher(config FuzzyMatcherConfig) *FuzzyMatcher {
	return &FuzzyMatcher{
		scorer: NewScorer(),
		config: config,
	}
}

// fuzzyFields caches the normalized fields of one person so each value
// is normalized once per scan, not once per pair.
type fuzzyFields struct {
	person   *models.Person
	name     string
	email    *string
	phone    *string
	location *string
	blockKey string
}

// Match emits a candidate for every pair whose composite similarity
// reaches the threshold. Pairs with two different non-null emails are
// suppressed outright: distinct emails are a strong negative signal
// even when names agree.
func (m *FuzzyMatcher) Match(people []models.Person) []models.DuplicateCandidate {
	fields := make([]fuzzyFields, 0, len(people))
	for i := range people {
		fields = append(fields, m.normalize(&people[i]))
	}

	candidates := make([]models.DuplicateCandidate, 0)
	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			a, b := &fields[i], &fields[j]
			if a.person.ID == b.person.ID {
				continue
			}
			if m.config.BlockingEnabled && a.blockKey != "" && b.blockKey != "" && a.blockKey != b.blockKey {
				continue
			}

			confidence, reason, ok := m.score(a, b)
			if !ok || confidence < m.config.Threshold {
				continue
			}
			if confidence > m.config.MaxConfidence {
				confidence = m.config.MaxConfidence
			}

			candidates = append(candidates, newCandidate(a.person, b.person, confidence, reason))
		}
	}

	return candidates
}

func (m *FuzzyMatcher) normalize(p *models.Person) fuzzyFields {
	f := fuzzyFields{
		person:   p,
		name:     normalizers.NormalizeName(p.DisplayName),
		email:    normalizers.ApplyPtr(p.Email, "nemail"),
		phone:    normalizers.ApplyPtr(p.Phone, "nphone"),
		location: normalizers.ApplyPtr(p.Location, "nlocation"),
	}
	if parts := strings.Fields(f.name); len(parts) > 0 {
		f.blockKey = m.scorer.Soundex(parts[len(parts)-1])
	}
	return f
}

// score computes the composite similarity and a reason summarizing the
// contributing signals. ok is false when the pair is suppressed or no
// field is comparable.
func (m *FuzzyMatcher) score(a, b *fuzzyFields) (float64, string, bool) {
	if a.email != nil && b.email != nil && *a.email != *b.email {
		return 0, "", false
	}

	scores := make(map[string]float64)
	weights := map[string]float64{
		"name":     weightName,
		"email":    weightEmail,
		"phone":    weightPhone,
		"location": weightLocation,
	}

	var reasons []string

	if a.name != "" && b.name != "" {
		nameScore := m.scorer.JaroWinkler(a.name, b.name)
		scores["name"] = nameScore
		reasons = append(reasons, fmt.Sprintf("name similarity %.2f", nameScore))
	}

	if a.email != nil && b.email != nil {
		scores["email"] = 1.0
		reasons = append(reasons, "same email")
	}

	if a.phone != nil && b.phone != nil {
		phoneScore := m.scorer.Levenshtein(*a.phone, *b.phone)
		scores["phone"] = phoneScore
		if phoneScore == 1.0 {
			reasons = append(reasons, "same phone")
		}
	}

	if a.location != nil && b.location != nil && *a.location == *b.location {
		scores["location"] = 1.0
		reasons = append(reasons, "same location")
	}

	if len(scores) == 0 {
		return 0, "", false
	}

	return m.scorer.WeightedScore(scores, weights), strings.Join(reasons, ", "), true
}
