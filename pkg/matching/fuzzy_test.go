package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
)

func TestFuzzyMatcher_SimilarNamesSameLocation(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyMatcherConfig())

	a := makePerson("11111111-1111-1111-1111-111111111111", "Jon Smith")
	a.Location = strPtr("Austin")
	b := makePerson("22222222-2222-2222-2222-222222222222", "John Smith")
	b.Location = strPtr("Austin")

	candidates := m.Match([]models.Person{a, b})
	require.Len(t, candidates, 1)

	got := candidates[0]
	assert.GreaterOrEqual(t, got.Confidence, 0.75)
	assert.LessOrEqual(t, got.Confidence, 0.95)
	assert.Contains(t, got.Reason, "name similarity")
	assert.Contains(t, got.Reason, "same location")
}

func TestFuzzyMatcher_ConfidenceCappedBelowDeterministic(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyMatcherConfig())

	// Same phone, same location, nearly identical names: the raw
	// composite exceeds the cap.
	a := makePerson("11111111-1111-1111-1111-111111111111", "Jon Smith")
	a.Phone = strPtr("5551234567")
	a.Location = strPtr("Austin")
	b := makePerson("22222222-2222-2222-2222-222222222222", "John Smith")
	b.Phone = strPtr("(555) 123-4567")
	b.Location = strPtr("Austin")

	candidates := m.Match([]models.Person{a, b})
	require.Len(t, candidates, 1)
	assert.Equal(t, 0.95, candidates[0].Confidence)
	assert.Less(t, candidates[0].Confidence, ConfidenceEmailMatch)
}

func TestFuzzyMatcher_DifferentEmailsSuppressed(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyMatcherConfig())

	a := makePerson("11111111-1111-1111-1111-111111111111", "John Smith")
	a.Email = strPtr("john@acme.com")
	a.Location = strPtr("Austin")
	b := makePerson("22222222-2222-2222-2222-222222222222", "John Smith")
	b.Email = strPtr("jsmith@other.io")
	b.Location = strPtr("Austin")

	assert.Empty(t, m.Match([]models.Person{a, b}))
}

func TestFuzzyMatcher_BelowThresholdSkipped(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyMatcherConfig())

	a := makePerson("11111111-1111-1111-1111-111111111111", "John Smith")
	b := makePerson("22222222-2222-2222-2222-222222222222", "Grace Hopper")

	assert.Empty(t, m.Match([]models.Person{a, b}))
}

func TestFuzzyMatcher_ThresholdConfigurable(t *testing.T) {
	config := DefaultFuzzyMatcherConfig()
	config.Threshold = 0.99

	m := NewFuzzyMatcher(config)

	a := makePerson("11111111-1111-1111-1111-111111111111", "Jon Smith")
	a.Location = strPtr("Austin")
	b := makePerson("22222222-2222-2222-2222-222222222222", "John Smith")
	b.Location = strPtr("Austin")

	assert.Empty(t, m.Match([]models.Person{a, b}))
}

func TestFuzzyMatcher_NameSuffixesIgnored(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyMatcherConfig())

	a := makePerson("11111111-1111-1111-1111-111111111111", "Robert Downey Jr.")
	a.Location = strPtr("LA")
	b := makePerson("22222222-2222-2222-2222-222222222222", "Robert Downey")
	b.Location = strPtr("LA")

	candidates := m.Match([]models.Person{a, b})
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Reason, "name similarity 1.00")
}

func TestFuzzyMatcher_BlockingSkipsDifferentLastNames(t *testing.T) {
	config := DefaultFuzzyMatcherConfig()
	config.BlockingEnabled = true
	config.Threshold = 0.0

	m := NewFuzzyMatcher(config)

	a := makePerson("11111111-1111-1111-1111-111111111111", "John Smith")
	a.Location = strPtr("Austin")
	b := makePerson("22222222-2222-2222-2222-222222222222", "John Miller")
	b.Location = strPtr("Austin")

	assert.Empty(t, m.Match([]models.Person{a, b}))
}

func TestFuzzyMatcher_BlockingKeepsPhoneticLastNames(t *testing.T) {
	config := DefaultFuzzyMatcherConfig()
	config.BlockingEnabled = true

	m := NewFuzzyMatcher(config)

	a := makePerson("11111111-1111-1111-1111-111111111111", "John Smith")
	a.Location = strPtr("Austin")
	b := makePerson("22222222-2222-2222-2222-222222222222", "John Smyth")
	b.Location = strPtr("Austin")

	candidates := m.Match([]models.Person{a, b})
	assert.Len(t, candidates, 1)
}

func TestFuzzyMatcher_NoComparableFields(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyMatcherConfig())

	a := models.Person{ID: "11111111-1111-1111-1111-111111111111", WorkspaceID: "w"}
	b := models.Person{ID: "22222222-2222-2222-2222-222222222222", WorkspaceID: "w"}

	assert.Empty(t, m.Match([]models.Person{a, b}))
}
