package handlers

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/OpenStreetlifting/openstreetlifting-backend/canonical"
	"github.com/OpenStreetlifting/openstreetlifting-backend/formula"
	"github.com/OpenStreetlifting/openstreetlifting-backend/importer"
)

// Importer is the part of *importer.Importer the admin routes use.
type Importer interface {
	IngestWithRetry(ctx context.Context, doc *canonical.Document) (*importer.ImportResult, error)
	Recompute(ctx context.Context, year int) (*importer.RecomputeResult, error)
}

// LedgerFunc loads the formula ledger for one request.
type LedgerFunc func(ctx context.Context) (*formula.Ledger, error)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db       *bun.DB
	JWTKey   []byte
	importer Importer
	ledger   LedgerFunc
	log      *zap.Logger
	admins   []string
}

// New creates a Handler with the given database connection, JWT signing key
// and importer.
func New(db *bun.DB, jwtKey []byte, im Importer, log *zap.Logger) *Handler {
	return &Handler{
		db:       db,
		JWTKey:   jwtKey,
		importer: im,
		ledger: func(ctx context.Context) (*formula.Ledger, error) {
			return formula.Load(ctx, db)
		},
		log:    log,
		admins: []string{"admin"},
	}
}
