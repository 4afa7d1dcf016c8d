package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Competition statuses.
const (
	StatusDraft     = "draft"
	StatusUpcoming  = "upcoming"
	StatusLive      = "live"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Statuses lists every valid competition status.
var Statuses = []string{StatusDraft, StatusUpcoming, StatusLive, StatusCompleted, StatusCancelled}

// Competition is one meet, identified by its slug.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:c"`

	ID             uuid.UUID  `bun:"competition_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"competitionID"`
	Name           string     `bun:"name,notnull" json:"name"`
	Slug           string     `bun:"slug,notnull,unique" json:"slug"`
	Status         string     `bun:"status,notnull,default:'completed'" json:"status"`
	FederationID   uuid.UUID  `bun:"federation_id,notnull,type:uuid" json:"federationID"`
	StartDate      time.Time  `bun:"start_date,notnull,type:date" json:"startDate"`
	EndDate        time.Time  `bun:"end_date,notnull,type:date" json:"endDate"`
	Venue          *string    `bun:"venue" json:"venue,omitempty"`
	City           *string    `bun:"city" json:"city,omitempty"`
	Country        *string    `bun:"country" json:"country,omitempty"`
	NumberOfJudges *int16     `bun:"number_of_judges" json:"numberOfJudges,omitempty"`
	SourceType     string     `bun:"source_type,notnull" json:"sourceType"`
	SourceURL      *string    `bun:"source_url" json:"sourceURL,omitempty"`
	ExtractedAt    *time.Time `bun:"extracted_at" json:"extractedAt,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`

	Federation *Federation `bun:"rel:belongs-to,join:federation_id=federation_id" json:"-"`
}
