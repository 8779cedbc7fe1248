// Package merging folds one person record into another atomically,
// re-pointing every dependent link table and unioning record data.
package merging

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// PersonStore is the slice of the person repository the engine needs.
type PersonStore interface {
	GetByID(ctx context.Context, workspaceID string, id string) (*models.Person, error)
	UpdateMergedData(ctx context.Context, workspaceID string, id string, customData map[string]string, sources []string) error
	Delete(ctx context.Context, workspaceID string, id string) error
}

// LinkStore re-points link tables from one person onto another.
type LinkStore interface {
	RepointAll(ctx context.Context, workspaceID string, keepID string, mergeID string) error
}

// CandidateStore retires duplicate candidates once their pair merges.
type CandidateStore interface {
	MarkMerged(ctx context.Context, workspaceID string, id string) error
	DeletePendingReferencing(ctx context.Context, workspaceID string, personID string) error
}

// EventEmitter reports a completed merge to downstream consumers.
type EventEmitter interface {
	EmitPersonMerged(ctx context.Context, workspaceID string, keepID string, mergeID string) error
}

// Engine performs the merge operation.
type Engine struct {
	logger     ectologger.Logger
	db         database.DB
	people     PersonStore
	links      LinkStore
	candidates CandidateStore
	events     EventEmitter
}

// NewEngine creates a new merge engine. events may be nil when no
// downstream consumer is wired.
func NewEngine(
	logger ectologger.Logger,
	db database.DB,
	people PersonStore,
	links LinkStore,
	candidates CandidateStore,
	events EventEmitter,
) *Engine {
	return &Engine{
		logger:     logger,
		db:         db,
		people:     people,
		links:      links,
		candidates: candidates,
		events:     events,
	}
}

// Merge folds mergeID into keepID within one workspace. All writes
// happen in a single transaction: link rows move to the keep person,
// custom data and sources union onto it, the merge person is deleted,
// and candidates naming either person are retired. Any failure rolls
// the whole operation back.
func (e *Engine) Merge(ctx context.Context, workspaceID string, req *models.MergeRequest) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Merge")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"workspace_id": workspaceID,
		"keep_id":      req.KeepID,
		"merge_id":     req.MergeID,
	})

	if req.KeepID == req.MergeID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot merge a person with themselves")
	}

	// Commit and the deferred Rollback take the pre-transaction ctx:
	// txCtx carries the open-transaction marker, and Rollback treats a
	// marked ctx as a nested caller and refuses to close the tx.
	txCtx, tx, err := e.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start merge")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	keep, err := e.people.GetByID(txCtx, workspaceID, req.KeepID)
	if err != nil {
		return nil, err
	}

	merge, err := e.people.GetByID(txCtx, workspaceID, req.MergeID)
	if err != nil {
		return nil, err
	}

	if err := e.links.RepointAll(txCtx, workspaceID, keep.ID, merge.ID); err != nil {
		return nil, err
	}

	customData := UnionCustomData(keep.CustomData.GetValue(), merge.CustomData.GetValue())
	sources := UnionSources(keep.Sources.GetValue(), merge.Sources.GetValue())
	if err := e.people.UpdateMergedData(txCtx, workspaceID, keep.ID, customData, sources); err != nil {
		return nil, err
	}

	if err := e.people.Delete(txCtx, workspaceID, merge.ID); err != nil {
		return nil, err
	}

	if req.CandidateID != nil {
		if err := e.candidates.MarkMerged(txCtx, workspaceID, *req.CandidateID); err != nil {
			return nil, err
		}
	}

	// Candidates still naming either person are stale now that the
	// pair has collapsed; retire them rather than leave them dangling
	// until the next scan.
	if err := e.candidates.DeletePendingReferencing(txCtx, workspaceID, keep.ID); err != nil {
		return nil, err
	}
	if err := e.candidates.DeletePendingReferencing(txCtx, workspaceID, merge.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit merge")
	}

	log.Info("Merged person")

	if e.events != nil {
		if err := e.events.EmitPersonMerged(context.WithoutCancel(ctx), workspaceID, keep.ID, merge.ID); err != nil {
			log.WithError(err).Warn("Failed to emit person merged event")
		}
	}

	return &models.MergeResult{KeepID: keep.ID}, nil
}
