package sqlite

import (
	"context"

	"github.com/vergehq/verge/internal/auth/domain"
)

type firmsRepo struct {
	db dbtx
}

func (r *firmsRepo) CreateFirm(ctx context.Context, f domain.Firm) error {
	const query = `
		INSERT INTO firms (id, name, address, city, state, zip, plan_tier)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.Name,
		mapOptionalString(f.Address),
		mapOptionalString(f.City),
		mapOptionalString(f.State),
		mapOptionalString(f.Zip),
		f.PlanTier,
	)
	return mapConstraint(err)
}

func (r *firmsRepo) GetFirmByID(ctx context.Context, id string) (domain.Firm, error) {
	const query = `
		SELECT id, name, address, city, state, zip, plan_tier, created_at, updated_at
		FROM firms WHERE id = ?`

	return scanFirm(r.db.QueryRowContext(ctx, query, id))
}
