package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

// Expose the underlying pool for diagnostics.
func (r *Repo) DB() *pgxpool.Pool { return r.db }
