package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Category is a gender + weight class division. A nil bound is open.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`

	ID             uuid.UUID        `bun:"category_id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"categoryID"`
	Name           string           `bun:"name,notnull,unique:categories_name_gender" json:"name"`
	Gender         string           `bun:"gender,notnull,unique:categories_name_gender" json:"gender"`
	WeightClassMin *decimal.Decimal `bun:"weight_class_min,type:numeric(6,2)" json:"weightClassMin,omitempty"`
	WeightClassMax *decimal.Decimal `bun:"weight_class_max,type:numeric(6,2)" json:"weightClassMax,omitempty"`
}
