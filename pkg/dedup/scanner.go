// Package dedup orchestrates duplicate scans: one snapshot of a
// workspace's people is fed through the deterministic and fuzzy
// matchers, the combined output is deduplicated and ranked, and the
// workspace's pending candidate set is replaced with the result.
package dedup

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/matching"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// PeopleSource fetches the person snapshot a scan runs over.
type PeopleSource interface {
	ListAll(ctx context.Context, workspaceID string, limit int) ([]models.Person, error)
}

// CandidateSink replaces a workspace's pending candidate set.
type CandidateSink interface {
	ReplacePendingBatch(ctx context.Context, workspaceID string, candidates []models.DuplicateCandidate) error
}

// ScannerConfig tunes a scan.
type ScannerConfig struct {
	// MaxPeople bounds the snapshot size per scan. Zero means no limit.
	MaxPeople int
	Fuzzy     matching.FuzzyMatcherConfig
}

func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		MaxPeople: 5000,
		Fuzzy:     matching.DefaultFuzzyMatcherConfig(),
	}
}

// Scanner runs duplicate scans for workspaces.
type Scanner struct {
	logger        ectologger.Logger
	people        PeopleSource
	candidates    CandidateSink
	deterministic *matching.DeterministicMatcher
	fuzzy         *matching.FuzzyMatcher
	config        ScannerConfig
}

func NewScanner(logger ectologger.Logger, people PeopleSource, candidates CandidateSink, config ScannerConfig) *Scanner {
	return &Scanner{
		logger:        logger,
		people:        people,
		candidates:    candidates,
		deterministic: matching.NewDeterministicMatcher(),
		fuzzy:         matching.NewFuzzyMatcher(config.Fuzzy),
		config:        config,
	}
}

// Scan fetches the workspace's people once, runs both matchers over
// the shared snapshot, deduplicates by unordered pair with
// deterministic output taking precedence, sorts by confidence
// descending, and replaces the pending candidate set. Running it twice
// on unchanged data produces the same set.
func (s *Scanner) Scan(ctx context.Context, workspaceID string) (*models.ScanResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Scanner.Scan")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{"workspace_id": workspaceID})

	people, err := s.people.ListAll(ctx, workspaceID, s.config.MaxPeople)
	if err != nil {
		return nil, err
	}

	deterministic := s.deterministic.Match(people)
	fuzzy := s.fuzzy.Match(people)

	// Deterministic candidates come first so an exact match wins over
	// a fuzzy duplicate of the same pair.
	combined := Dedupe(append(deterministic, fuzzy...))

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Confidence > combined[j].Confidence
	})

	if err := s.candidates.ReplacePendingBatch(ctx, workspaceID, combined); err != nil {
		return nil, err
	}

	result := &models.ScanResult{
		Total:         len(combined),
		Deterministic: len(deterministic),
		Fuzzy:         len(fuzzy),
	}

	log.WithFields(map[string]any{
		"people":        len(people),
		"total":         result.Total,
		"deterministic": result.Deterministic,
		"fuzzy":         result.Fuzzy,
	}).Info("Duplicate scan complete")

	return result, nil
}

// Dedupe collapses candidates naming the same unordered pair, keeping
// the first occurrence.
func Dedupe(candidates []models.DuplicateCandidate) []models.DuplicateCandidate {
	result := make([]models.DuplicateCandidate, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		key := c.PairKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, c)
	}
	return result
}
