package matching

import (
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizers"
)

// Deterministic match confidences. Exact key collisions are
// near-certain duplicates; a shared email is a slightly stronger
// signal than a shared phone.
const (
	ConfidenceEmailMatch = 0.98
	ConfidencePhoneMatch = 0.95

	ReasonEmailMatch = "exact email match"
	ReasonPhoneMatch = "exact phone match"
)

// DeterministicMatcher finds people sharing the same normalized email
// or phone. People are grouped into buckets per key, so the scan is
// linear in the number of people rather than pairwise.
type DeterministicMatcher struct{}

func NewDeterministicMatcher() *DeterministicMatcher {
	return &DeterministicMatcher{}
}

// Match emits one candidate per unordered pair of distinct people
// sharing a normalized email or phone. A pair matched on both keys is
// emitted once, with the email reason.
func (m *DeterministicMatcher) Match(people []models.Person) []models.DuplicateCandidate {
	candidates := make([]models.DuplicateCandidate, 0)
	seen := make(map[string]bool)

	emailBuckets := bucketBy(people, func(p *models.Person) *string {
		return normalizers.ApplyPtr(p.Email, "nemail")
	})
	for _, bucket := range emailBuckets {
		candidates = appendBucketPairs(candidates, seen, bucket, ConfidenceEmailMatch, ReasonEmailMatch)
	}

	phoneBuckets := bucketBy(people, func(p *models.Person) *string {
		return normalizers.ApplyPtr(p.Phone, "nphone")
	})
	for _, bucket := range phoneBuckets {
		candidates = appendBucketPairs(candidates, seen, bucket, ConfidencePhoneMatch, ReasonPhoneMatch)
	}

	return candidates
}

func bucketBy(people []models.Person, key func(p *models.Person) *string) map[string][]*models.Person {
	buckets := make(map[string][]*models.Person)
	for i := range people {
		k := key(&people[i])
		if k == nil {
			continue
		}
		buckets[*k] = append(buckets[*k], &people[i])
	}
	return buckets
}

func appendBucketPairs(candidates []models.DuplicateCandidate, seen map[string]bool, bucket []*models.Person, confidence float64, reason string) []models.DuplicateCandidate {
	if len(bucket) < 2 {
		return candidates
	}

	for i := 0; i < len(bucket); i++ {
		for j := i + 1; j < len(bucket); j++ {
			a, b := bucket[i], bucket[j]
			if a.ID == b.ID {
				continue
			}

			key := models.PairKey(a.ID, b.ID)
			if seen[key] {
				continue
			}
			seen[key] = true

			candidates = append(candidates, newCandidate(a, b, confidence, reason))
		}
	}

	return candidates
}

// newCandidate orders the pair so person_a_id is always the smaller
// id, keeping the stored pair canonical.
func newCandidate(a, b *models.Person, confidence float64, reason string) models.DuplicateCandidate {
	aID, bID := a.ID, b.ID
	if bID < aID {
		aID, bID = bID, aID
	}
	return models.DuplicateCandidate{
		WorkspaceID: a.WorkspaceID,
		PersonAID:   aID,
		PersonBID:   bID,
		Confidence:  confidence,
		Reason:      reason,
		Status:      models.DuplicateCandidateStatusPending,
	}
}
