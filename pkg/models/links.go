package models

import "time"

// CompanyLink associates a person with a company, with the role they
// hold there. (workspace_id, person_id, company_id) is unique.
type CompanyLink struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	PersonID    string    `json:"person_id" db:"person_id"`
	CompanyID   string    `json:"company_id" db:"company_id"`
	Role        *string   `json:"role,omitempty" db:"role"`
	IsCurrent   bool      `json:"is_current" db:"is_current"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TagLink associates a person with a tag. (workspace_id, person_id,
// tag_id) is unique.
type TagLink struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	PersonID    string    `json:"person_id" db:"person_id"`
	TagID       string    `json:"tag_id" db:"tag_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// InteractionParticipant records a person's participation in an
// interaction. (workspace_id, interaction_id, person_id) is unique.
type InteractionParticipant struct {
	ID            string    `json:"id" db:"id"`
	WorkspaceID   string    `json:"workspace_id" db:"workspace_id"`
	InteractionID string    `json:"interaction_id" db:"interaction_id"`
	PersonID      string    `json:"person_id" db:"person_id"`
	Role          *string   `json:"role,omitempty" db:"role"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Note is a free-form note owned by a person.
type Note struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	PersonID    string    `json:"person_id" db:"person_id"`
	Body        string    `json:"body" db:"body"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SocialProfile is a person's handle on an external network.
// (workspace_id, person_id, platform) is unique.
type SocialProfile struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	PersonID    string    `json:"person_id" db:"person_id"`
	Platform    string    `json:"platform" db:"platform"`
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
