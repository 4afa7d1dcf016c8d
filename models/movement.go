package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Movement is one lift of the controlled vocabulary (Pull-up, Dips, ...).
type Movement struct {
	bun.BaseModel `bun:"table:movements,alias:m"`

	ID           uuid.UUID `bun:"movement_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"movementID"`
	Name         string    `bun:"name,notnull,unique" json:"name"`
	DisplayOrder int       `bun:"display_order,notnull" json:"displayOrder"`
}

// CompetitionMovement lists the movements contested at a competition.
type CompetitionMovement struct {
	bun.BaseModel `bun:"table:competition_movements,alias:cm"`

	CompetitionID uuid.UUID `bun:"competition_id,pk,type:uuid" json:"competitionID"`
	MovementID    uuid.UUID `bun:"movement_id,pk,type:uuid" json:"movementID"`
	DisplayOrder  int       `bun:"display_order,notnull" json:"displayOrder"`
	IsRequired    bool      `bun:"is_required,notnull" json:"isRequired"`
}
