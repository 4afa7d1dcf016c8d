package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Athlete is deduplicated on (name_key, gender, country). NameKey is order
// and case independent; FirstName and LastName keep the spelling of the
// latest import.
type Athlete struct {
	bun.BaseModel `bun:"table:athletes,alias:a"`

	ID          uuid.UUID `bun:"athlete_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"athleteID"`
	FirstName   string    `bun:"first_name,notnull" json:"firstName"`
	LastName    string    `bun:"last_name,notnull" json:"lastName"`
	NameKey     string    `bun:"name_key,notnull,unique:athletes_identity" json:"-"`
	Gender      string    `bun:"gender,notnull,unique:athletes_identity" json:"gender"`
	Country     string    `bun:"country,notnull,unique:athletes_identity" json:"country"`
	Nationality *string   `bun:"nationality" json:"nationality,omitempty"`
	Slug        string    `bun:"slug,notnull,unique" json:"slug"`
	SlugHistory []string  `bun:"slug_history,type:jsonb,notnull,default:'[]'" json:"slugHistory"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}
