package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Participant is one athlete's entry in one competition+category.
// Total, Rank and RISScore are derived by the importer.
type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID                 uuid.UUID        `bun:"participant_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"participantID"`
	CompetitionID      uuid.UUID        `bun:"competition_id,notnull,type:uuid,unique:participants_entry" json:"competitionID"`
	CategoryID         uuid.UUID        `bun:"category_id,notnull,type:uuid,unique:participants_entry" json:"categoryID"`
	AthleteID          uuid.UUID        `bun:"athlete_id,notnull,type:uuid,unique:participants_entry" json:"athleteID"`
	Bodyweight         *decimal.Decimal `bun:"bodyweight,type:numeric(6,2)" json:"bodyweight,omitempty"`
	Total              decimal.Decimal  `bun:"total,notnull,type:numeric(8,2),default:0" json:"total"`
	Rank               *int             `bun:"rank" json:"rank,omitempty"`
	IsDisqualified     bool             `bun:"is_disqualified,notnull,default:false" json:"isDisqualified"`
	DisqualifiedReason *string          `bun:"disqualified_reason" json:"disqualifiedReason,omitempty"`
	RISScore           *decimal.Decimal `bun:"ris_score,type:numeric(8,2)" json:"risScore,omitempty"`
}

// Lift is a participant's result for one movement. BestWeight is the best
// successful attempt, zero when every attempt failed.
type Lift struct {
	bun.BaseModel `bun:"table:lifts,alias:l"`

	ID            uuid.UUID       `bun:"lift_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"liftID"`
	ParticipantID uuid.UUID       `bun:"participant_id,notnull,type:uuid,unique:lifts_participant_movement" json:"participantID"`
	MovementID    uuid.UUID       `bun:"movement_id,notnull,type:uuid,unique:lifts_participant_movement" json:"movementID"`
	BestWeight    decimal.Decimal `bun:"best_weight,notnull,type:numeric(6,2),default:0" json:"bestWeight"`
}

// Attempt is a single try at a lift. Only the final decision is kept.
type Attempt struct {
	bun.BaseModel `bun:"table:attempts,alias:at"`

	ID            uuid.UUID       `bun:"attempt_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"attemptID"`
	LiftID        uuid.UUID       `bun:"lift_id,notnull,type:uuid,unique:attempts_lift_number" json:"liftID"`
	AttemptNumber int16           `bun:"attempt_number,notnull,unique:attempts_lift_number" json:"attemptNumber"`
	Weight        decimal.Decimal `bun:"weight,notnull,type:numeric(6,2)" json:"weight"`
	IsSuccessful  bool            `bun:"is_successful,notnull" json:"isSuccessful"`
	NoRepReason   *string         `bun:"no_rep_reason" json:"noRepReason,omitempty"`
}
