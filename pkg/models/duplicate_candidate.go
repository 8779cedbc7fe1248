package models

import (
	"time"
)

// DuplicateCandidateStatus constants
const (
	DuplicateCandidateStatusPending   = "pending"
	DuplicateCandidateStatusDismissed = "dismissed"
	DuplicateCandidateStatusMerged    = "merged"
)

// DuplicateCandidate is a proposed pairing of two people believed to be
// the same contact. The pair is conceptually unordered; PairKey gives
// the canonical identity used for deduplication.
type DuplicateCandidate struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	PersonAID   string    `json:"person_a_id" db:"person_a_id"`
	PersonBID   string    `json:"person_b_id" db:"person_b_id"`
	Confidence  float64   `json:"confidence" db:"confidence"`
	Reason      string    `json:"reason" db:"reason"`
	Status      string    `json:"status" db:"status"` // pending, dismissed, merged
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// PairKey returns the sorted id tuple so (A,B) and (B,A) collapse to
// the same key.
func (c *DuplicateCandidate) PairKey() string {
	return PairKey(c.PersonAID, c.PersonBID)
}

func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// References reports whether the candidate names the given person on
// either side of the pair.
func (c *DuplicateCandidate) References(personID string) bool {
	return c.PersonAID == personID || c.PersonBID == personID
}

// PendingCandidate is a pending candidate joined with both persons'
// display fields for review UIs.
type PendingCandidate struct {
	ID           string    `json:"id" db:"id"`
	WorkspaceID  string    `json:"workspace_id" db:"workspace_id"`
	PersonAID    string    `json:"person_a_id" db:"person_a_id"`
	PersonBID    string    `json:"person_b_id" db:"person_b_id"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	Reason       string    `json:"reason" db:"reason"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	PersonAName  string    `json:"person_a_name" db:"person_a_name"`
	PersonAEmail *string   `json:"person_a_email,omitempty" db:"person_a_email"`
	PersonBName  string    `json:"person_b_name" db:"person_b_name"`
	PersonBEmail *string   `json:"person_b_email,omitempty" db:"person_b_email"`
}

// MergeRequest is the request to merge one person into another.
type MergeRequest struct {
	KeepID      string  `json:"keep_id" validate:"required,uuid"`
	MergeID     string  `json:"merge_id" validate:"required,uuid"`
	CandidateID *string `json:"candidate_id,omitempty" validate:"omitempty,uuid"`
}

// MergeResult reports the surviving person after a merge.
type MergeResult struct {
	KeepID string `json:"keep_id"`
}

// ScanResult reports how many candidates a duplicate scan produced.
type ScanResult struct {
	Total         int `json:"total"`
	Deterministic int `json:"deterministic"`
	Fuzzy         int `json:"fuzzy"`
}
