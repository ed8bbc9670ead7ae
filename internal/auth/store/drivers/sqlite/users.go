package sqlite

import (
	"context"
	"database/sql"

	"github.com/vergehq/verge/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, firm_id, email, password_hash, first_name, last_name,
	phone, role, two_factor_secret, two_factor_status, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (
			id, firm_id, email, password_hash, first_name, last_name,
			phone, role, two_factor_secret, two_factor_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.FirmID,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		mapOptionalString(u.Phone),
		u.Role,
		mapOptionalString(u.TwoFactorSecret),
		u.TwoFactorStatus,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *usersRepo) UpdateTwoFactorStatus(ctx context.Context, userID string, status string) error {
	const query = `
		UPDATE users SET two_factor_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, status, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
