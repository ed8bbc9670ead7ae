package sqlite

import (
	"database/sql"

	"github.com/vergehq/verge/internal/auth/domain"
)

func scanFirm(row *sql.Row) (domain.Firm, error) {
	var (
		f                          domain.Firm
		address, city, state, zip2 sql.NullString
	)

	err := row.Scan(
		&f.ID,
		&f.Name,
		&address,
		&city,
		&state,
		&zip2,
		&f.PlanTier,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return domain.Firm{}, mapNotFound(err)
	}

	f.Address = mapNullString(address)
	f.City = mapNullString(city)
	f.State = mapNullString(state)
	f.Zip = mapNullString(zip2)
	return f, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u             domain.User
		phone, secret sql.NullString
	)

	err := row.Scan(
		&u.ID,
		&u.FirmID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&phone,
		&u.Role,
		&secret,
		&u.TwoFactorStatus,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Phone = mapNullString(phone)
	u.TwoFactorSecret = mapNullString(secret)
	return u, nil
}
