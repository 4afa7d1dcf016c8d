package models

import "github.com/uptrace/bun"

// Operator is an account allowed to trigger imports and recomputation
// through the HTTP surface. Password is a bcrypt hash.
type Operator struct {
	bun.BaseModel `bun:"table:operators,alias:o"`

	ID       int    `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Password string `bun:"password,notnull" json:"-"`
}
