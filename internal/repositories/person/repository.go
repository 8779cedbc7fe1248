// Package person persists contacts. Every query is scoped by
// workspace id.
package person

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/normalizers"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

const pgUniqueViolation = "23505"

var personColumns = []string{
	"id", "workspace_id", "email", "phone", "first_name", "last_name", "display_name",
	"bio", "location", "relationship_type", "relationship_strength",
	"last_contacted_at", "next_followup_at", "custom_data", "sources", "source_ids",
	"created_at", "updated_at",
}

// Repository handles person persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new person repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new person. The email is normalized before writing
// so the (workspace_id, email) unique constraint sees canonical values.
func (r *Repository) Create(ctx context.Context, workspaceID string, req *models.CreatePersonRequest) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	person := &models.Person{
		ID:                   uuid.New().String(),
		WorkspaceID:          workspaceID,
		Email:                normalizers.ApplyPtr(req.Email, "nemail"),
		Phone:                normalizers.ApplyPtr(req.Phone, "trim"),
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		DisplayName:          req.DisplayName,
		Bio:                  req.Bio,
		Location:             req.Location,
		RelationshipType:     req.RelationshipType,
		RelationshipStrength: req.RelationshipStrength,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	person.CustomData.Data = req.CustomData
	if person.CustomData.Data == nil {
		person.CustomData.Data = map[string]string{}
	}
	person.Sources.Data = req.Sources
	if person.Sources.Data == nil {
		person.Sources.Data = []string{}
	}
	person.SourceIDs.Data = req.SourceIDs
	if person.SourceIDs.Data == nil {
		person.SourceIDs.Data = map[string]string{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("people")
	sb.Cols(personColumns...)
	sb.Values(
		person.ID, person.WorkspaceID, person.Email, person.Phone, person.FirstName, person.LastName, person.DisplayName,
		person.Bio, person.Location, person.RelationshipType, person.RelationshipStrength,
		person.LastContactedAt, person.NextFollowupAt, person.CustomData, person.Sources, person.SourceIDs,
		person.CreatedAt, person.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := database.For(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, httperror.NewHTTPError(http.StatusConflict, "a person with this email already exists in the workspace")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create person")
	}

	return person, nil
}

// GetByID retrieves a person by id within a workspace. Cross-workspace
// lookups report not found, never the other workspace's data.
func (r *Repository) GetByID(ctx context.Context, workspaceID string, id string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personColumns...)
	sb.From("people")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("workspace_id", workspaceID),
	)

	query, args := sb.Build()
	var person models.Person
	if err := database.For(ctx, r.db).GetContext(ctx, &person, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get person")
	}

	return &person, nil
}

// GetByEmail retrieves a person by normalized email within a workspace
func (r *Repository) GetByEmail(ctx context.Context, workspaceID string, email string) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.GetByEmail")
	defer span.End()

	normalized := normalizers.NormalizeEmail(email)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personColumns...)
	sb.From("people")
	sb.Where(
		sb.Equal("workspace_id", workspaceID),
		sb.Equal("email", normalized),
	)

	query, args := sb.Build()
	var person models.Person
	if err := database.For(ctx, r.db).GetContext(ctx, &person, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no person with email %s", normalized))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get person by email")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get person")
	}

	return &person, nil
}

// List retrieves a page of people in a workspace ordered by display name
func (r *Repository) List(ctx context.Context, workspaceID string, page, pageSize int) (*models.PersonListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("people")
	countSb.Where(countSb.Equal("workspace_id", workspaceID))

	countQuery, countArgs := countSb.Build()
	var total int
	if err := database.For(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count people")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list people")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personColumns...)
	sb.From("people")
	sb.Where(sb.Equal("workspace_id", workspaceID))
	sb.OrderBy("display_name ASC", "id ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	people := []models.Person{}
	if err := database.For(ctx, r.db).SelectContext(ctx, &people, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list people")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list people")
	}

	return &models.PersonListResponse{
		Items:      people,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// ListAll retrieves every person in a workspace up to limit. Used by
// the duplicate scan so both matchers share one snapshot.
func (r *Repository) ListAll(ctx context.Context, workspaceID string, limit int) ([]models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(personColumns...)
	sb.From("people")
	sb.Where(sb.Equal("workspace_id", workspaceID))
	sb.OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	people := []models.Person{}
	if err := database.For(ctx, r.db).SelectContext(ctx, &people, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list people for scan")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list people")
	}

	return people, nil
}

// Update applies the non-nil fields of the request to a person
func (r *Repository) Update(ctx context.Context, workspaceID string, id string, req *models.UpdatePersonRequest) (*models.Person, error) {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("people")

	assignments := []string{sb.Assign("updated_at", time.Now().UTC())}
	if req.Email != nil {
		assignments = append(assignments, sb.Assign("email", normalizers.ApplyPtr(req.Email, "nemail")))
	}
	if req.Phone != nil {
		assignments = append(assignments, sb.Assign("phone", normalizers.ApplyPtr(req.Phone, "trim")))
	}
	if req.FirstName != nil {
		assignments = append(assignments, sb.Assign("first_name", req.FirstName))
	}
	if req.LastName != nil {
		assignments = append(assignments, sb.Assign("last_name", req.LastName))
	}
	if req.DisplayName != nil {
		assignments = append(assignments, sb.Assign("display_name", *req.DisplayName))
	}
	if req.Bio != nil {
		assignments = append(assignments, sb.Assign("bio", req.Bio))
	}
	if req.Location != nil {
		assignments = append(assignments, sb.Assign("location", req.Location))
	}
	if req.RelationshipType != nil {
		assignments = append(assignments, sb.Assign("relationship_type", req.RelationshipType))
	}
	if req.RelationshipStrength != nil {
		assignments = append(assignments, sb.Assign("relationship_strength", req.RelationshipStrength))
	}
	if req.LastContactedAt != nil {
		assignments = append(assignments, sb.Assign("last_contacted_at", req.LastContactedAt))
	}
	if req.NextFollowupAt != nil {
		assignments = append(assignments, sb.Assign("next_followup_at", req.NextFollowupAt))
	}
	if req.CustomData != nil {
		assignments = append(assignments, sb.Assign("custom_data", database.JSONB[map[string]string]{Data: req.CustomData}))
	}

	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("workspace_id", workspaceID),
	)

	query, args := sb.Build()
	result, err := database.For(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, httperror.NewHTTPError(http.StatusConflict, "a person with this email already exists in the workspace")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update person")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update person")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}

	return r.GetByID(ctx, workspaceID, id)
}

// UpdateMergedData overwrites a person's custom_data and sources with
// the unioned values computed by the merge engine.
func (r *Repository) UpdateMergedData(ctx context.Context, workspaceID string, id string, customData map[string]string, sources []string) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.UpdateMergedData")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("people")
	sb.Set(
		sb.Assign("custom_data", database.JSONB[map[string]string]{Data: customData}),
		sb.Assign("sources", database.JSONB[[]string]{Data: sources}),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("workspace_id", workspaceID),
	)

	query, args := sb.Build()
	result, err := database.For(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update merged person data")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update person")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}

	return nil
}

// Delete removes a person
func (r *Repository) Delete(ctx context.Context, workspaceID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "person.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("people")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("workspace_id", workspaceID),
	)

	query, args := sb.Build()
	result, err := database.For(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete person")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete person")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("person %s not found", id))
	}

	return nil
}
