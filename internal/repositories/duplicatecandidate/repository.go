// Package duplicatecandidate persists duplicate candidates and their
// pending/dismissed/merged lifecycle.
package duplicatecandidate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

var candidateColumns = []string{
	"id", "workspace_id", "person_a_id", "person_b_id", "confidence", "reason", "status", "created_at",
}

// Repository handles duplicate candidate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new duplicate candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListPending retrieves pending candidates ordered by confidence
// descending, joined with both persons' display fields. The inner
// joins drop candidates whose person has since been deleted, so stale
// pairs never surface for review.
func (r *Repository) ListPending(ctx context.Context, workspaceID string, limit int) ([]models.PendingCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT c.id, c.workspace_id, c.person_a_id, c.person_b_id, c.confidence, c.reason, c.created_at,
			pa.display_name AS person_a_name, pa.email AS person_a_email,
			pb.display_name AS person_b_name, pb.email AS person_b_email
		FROM duplicate_candidates c
		JOIN people pa ON pa.id = c.person_a_id AND pa.workspace_id = c.workspace_id
		JOIN people pb ON pb.id = c.person_b_id AND pb.workspace_id = c.workspace_id
		WHERE c.workspace_id = $1 AND c.status = $2
		ORDER BY c.confidence DESC, c.created_at DESC
		LIMIT $3
	`

	candidates := []models.PendingCandidate{}
	if err := database.For(ctx, r.db).SelectContext(ctx, &candidates, query, workspaceID, models.DuplicateCandidateStatusPending, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending candidates")
	}

	return candidates, nil
}

// GetByID retrieves a candidate by id within a workspace
func (r *Repository) GetByID(ctx context.Context, workspaceID string, id string) (*models.DuplicateCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("duplicate_candidates")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("workspace_id", workspaceID),
	)

	query, args := sb.Build()
	var candidate models.DuplicateCandidate
	if err := database.For(ctx, r.db).GetContext(ctx, &candidate, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("duplicate candidate %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get duplicate candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get duplicate candidate")
	}

	return &candidate, nil
}

// Dismiss transitions a pending candidate to dismissed
func (r *Repository) Dismiss(ctx context.Context, workspaceID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.Dismiss")
	defer span.End()

	return r.updateStatus(ctx, workspaceID, id, models.DuplicateCandidateStatusDismissed,
		models.DuplicateCandidateStatusPending)
}

// MarkMerged transitions a candidate to merged. Dismissed candidates
// transition too: a user can merge a pair they previously snoozed, and
// the merge itself is what retires the candidate.
func (r *Repository) MarkMerged(ctx context.Context, workspaceID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.MarkMerged")
	defer span.End()

	return r.updateStatus(ctx, workspaceID, id, models.DuplicateCandidateStatusMerged,
		models.DuplicateCandidateStatusPending, models.DuplicateCandidateStatusDismissed)
}

func (r *Repository) updateStatus(ctx context.Context, workspaceID string, id string, status string, from ...string) error {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("duplicate_candidates")
	sb.Set(sb.Assign("status", status))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("workspace_id", workspaceID),
		sb.In("status", sqlbuilder.Flatten(from)...),
	)

	query, args := sb.Build()
	result, err := database.For(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update candidate status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update candidate status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("duplicate candidate %s not found", id))
	}

	return nil
}

// ReplacePendingBatch deletes the workspace's pending candidates and
// inserts the new batch in one transaction, so concurrent readers
// never observe an empty pending set mid-swap.
func (r *Repository) ReplacePendingBatch(ctx context.Context, workspaceID string, candidates []models.DuplicateCandidate) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.ReplacePendingBatch")
	defer span.End()

	// The deferred Rollback takes the pre-transaction ctx: txCtx
	// carries the open-transaction marker, which Rollback reads as a
	// nested caller and refuses to close the tx for.
	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace pending candidates")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleteSb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	deleteSb.DeleteFrom("duplicate_candidates")
	deleteSb.Where(
		deleteSb.Equal("workspace_id", workspaceID),
		deleteSb.Equal("status", models.DuplicateCandidateStatusPending),
	)

	deleteQuery, deleteArgs := deleteSb.Build()
	if _, err := tx.ExecContext(txCtx, deleteQuery, deleteArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear pending candidates")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace pending candidates")
	}

	if len(candidates) > 0 {
		now := time.Now().UTC()
		sb := database.NewInsertBuilder()
		sb.InsertInto("duplicate_candidates")
		sb.Cols(candidateColumns...)
		for i := range candidates {
			c := &candidates[i]
			if c.ID == "" {
				c.ID = uuid.New().String()
			}
			if c.Status == "" {
				c.Status = models.DuplicateCandidateStatusPending
			}
			c.CreatedAt = now
			sb.Values(c.ID, c.WorkspaceID, c.PersonAID, c.PersonBID, c.Confidence, c.Reason, c.Status, c.CreatedAt)
		}
		sb.OnConflictDoNothing()

		query, args := sb.Build()
		if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to insert candidate batch")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace pending candidates")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace pending candidates")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"workspace_id": workspaceID, "count": len(candidates)}).Debug("Replaced pending candidate batch")
	return nil
}

// DeletePendingReferencing removes every still-pending candidate that
// names the given person on either side. Used by the merge engine so
// candidates for a deleted person don't linger until the next scan.
func (r *Repository) DeletePendingReferencing(ctx context.Context, workspaceID string, personID string) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.DeletePendingReferencing")
	defer span.End()

	query := `
		DELETE FROM duplicate_candidates
		WHERE workspace_id = $1
		AND status = $2
		AND (person_a_id = $3 OR person_b_id = $3)
	`

	if _, err := database.For(ctx, r.db).ExecContext(ctx, query, workspaceID, models.DuplicateCandidateStatusPending, personID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete pending candidates referencing person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete pending candidates")
	}

	return nil
}
