package models

import (
	"time"

	"github.com/Ramsey-B/aster/pkg/database"
)

// Person is a contact within a workspace. Every person belongs to
// exactly one workspace and (workspace_id, email) is unique when email
// is set.
type Person struct {
	ID                   string                            `json:"id" db:"id"`
	WorkspaceID          string                            `json:"workspace_id" db:"workspace_id"`
	Email                *string                           `json:"email,omitempty" db:"email"`
	Phone                *string                           `json:"phone,omitempty" db:"phone"`
	FirstName            *string                           `json:"first_name,omitempty" db:"first_name"`
	LastName             *string                           `json:"last_name,omitempty" db:"last_name"`
	DisplayName          string                            `json:"display_name" db:"display_name"`
	Bio                  *string                           `json:"bio,omitempty" db:"bio"`
	Location             *string                           `json:"location,omitempty" db:"location"`
	RelationshipType     *string                           `json:"relationship_type,omitempty" db:"relationship_type"`
	RelationshipStrength *int                              `json:"relationship_strength,omitempty" db:"relationship_strength"`
	LastContactedAt      *time.Time                        `json:"last_contacted_at,omitempty" db:"last_contacted_at"`
	NextFollowupAt       *time.Time                        `json:"next_followup_at,omitempty" db:"next_followup_at"`
	CustomData           database.JSONB[map[string]string] `json:"custom_data" db:"custom_data"`
	Sources              database.JSONB[[]string]          `json:"sources" db:"sources"`
	SourceIDs            database.JSONB[map[string]string] `json:"source_ids" db:"source_ids"`
	CreatedAt            time.Time                         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time                         `json:"updated_at" db:"updated_at"`
}

// CreatePersonRequest is the request for creating a person
type CreatePersonRequest struct {
	Email                *string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone                *string           `json:"phone,omitempty"`
	FirstName            *string           `json:"first_name,omitempty"`
	LastName             *string           `json:"last_name,omitempty"`
	DisplayName          string            `json:"display_name" validate:"required"`
	Bio                  *string           `json:"bio,omitempty"`
	Location             *string           `json:"location,omitempty"`
	RelationshipType     *string           `json:"relationship_type,omitempty"`
	RelationshipStrength *int              `json:"relationship_strength,omitempty" validate:"omitempty,min=1,max=5"`
	CustomData           map[string]string `json:"custom_data,omitempty"`
	Sources              []string          `json:"sources,omitempty"`
	SourceIDs            map[string]string `json:"source_ids,omitempty"`
}

// UpdatePersonRequest is the request for updating a person. Nil fields
// are left unchanged.
type UpdatePersonRequest struct {
	Email                *string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone                *string           `json:"phone,omitempty"`
	FirstName            *string           `json:"first_name,omitempty"`
	LastName             *string           `json:"last_name,omitempty"`
	DisplayName          *string           `json:"display_name,omitempty"`
	Bio                  *string           `json:"bio,omitempty"`
	Location             *string           `json:"location,omitempty"`
	RelationshipType     *string           `json:"relationship_type,omitempty"`
	RelationshipStrength *int              `json:"relationship_strength,omitempty" validate:"omitempty,min=1,max=5"`
	LastContactedAt      *time.Time        `json:"last_contacted_at,omitempty"`
	NextFollowupAt       *time.Time        `json:"next_followup_at,omitempty"`
	CustomData           map[string]string `json:"custom_data,omitempty"`
}

// PersonListResponse is the response for listing people
type PersonListResponse struct {
	Items      []Person `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
