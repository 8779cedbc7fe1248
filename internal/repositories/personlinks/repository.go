// Package personlinks re-points the link tables that reference a
// person: company links, tags, interaction participation, notes, and
// social profiles. The merge engine drives these as an ordered list of
// relocation steps inside one transaction.
package personlinks

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// relocation describes one link table and the natural key that could
// collide when rows move onto the keep person. Tables without a
// conflict key (notes) relocate unconditionally.
type relocation struct {
	table        string
	conflictKeys []string
}

// Relocations is the ordered list of link tables a merge must visit.
var Relocations = []relocation{
	{table: "company_links", conflictKeys: []string{"company_id"}},
	{table: "tag_links", conflictKeys: []string{"tag_id"}},
	{table: "interaction_participants", conflictKeys: []string{"interaction_id"}},
	{table: "notes", conflictKeys: nil},
	{table: "social_profiles", conflictKeys: []string{"platform"}},
}

// Repository handles link table relocation during merges
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new person links repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// RepointAll moves every link row from mergeID onto keepID, table by
// table in Relocations order. Each step is idempotent: rerunning it
// finds no remaining rows for mergeID and changes nothing.
func (r *Repository) RepointAll(ctx context.Context, workspaceID string, keepID string, mergeID string) error {
	ctx, span := tracing.StartSpan(ctx, "personlinks.Repository.RepointAll")
	defer span.End()

	for _, step := range Relocations {
		if err := r.repoint(ctx, step, workspaceID, keepID, mergeID); err != nil {
			return err
		}
	}

	return nil
}

// repoint moves rows in one table. Rows whose natural key already
// exists on the keep person would violate a uniqueness constraint, so
// those stay behind on the first statement and are dropped by the
// second as redundant duplicates.
func (r *Repository) repoint(ctx context.Context, step relocation, workspaceID string, keepID string, mergeID string) error {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("personlinks.Repository.repoint.%s", step.table))
	defer span.End()

	update := fmt.Sprintf(`
		UPDATE %s SET person_id = $1
		WHERE workspace_id = $2 AND person_id = $3
	`, step.table)
	if len(step.conflictKeys) > 0 {
		update += fmt.Sprintf(`AND NOT EXISTS (
			SELECT 1 FROM %s existing
			WHERE existing.workspace_id = $2 AND existing.person_id = $1
		`, step.table)
		for _, key := range step.conflictKeys {
			update += fmt.Sprintf(" AND existing.%s = %s.%s", key, step.table, key)
		}
		update += ")"
	}

	if _, err := database.For(ctx, r.db).ExecContext(ctx, update, keepID, workspaceID, mergeID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": step.table}).Error("Failed to repoint link rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to repoint %s", step.table))
	}

	remove := fmt.Sprintf("DELETE FROM %s WHERE workspace_id = $1 AND person_id = $2", step.table)
	if _, err := database.For(ctx, r.db).ExecContext(ctx, remove, workspaceID, mergeID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": step.table}).Error("Failed to drop redundant link rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to clean up %s", step.table))
	}

	return nil
}
