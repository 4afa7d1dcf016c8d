package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Federation is the sanctioning body a competition belongs to.
type Federation struct {
	bun.BaseModel `bun:"table:federations,alias:f"`

	ID           uuid.UUID `bun:"federation_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"federationID"`
	Name         string    `bun:"name,notnull,unique" json:"name"`
	Abbreviation *string   `bun:"abbreviation" json:"abbreviation,omitempty"`
	Country      *string   `bun:"country" json:"country,omitempty"`
}
