package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stardiary/stardiary/internal/auth/domain"
)

type staffRepo struct {
	db dbtx
}

const staffColumns = `id, phone, email, name, password_hash, role, active, twofa_secret, last_login, created_at, updated_at`

func (r *staffRepo) GetStaffByID(ctx context.Context, id string) (domain.StaffIdentity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff_identities WHERE id = ?`, id)
	return scanStaff(row)
}

func (r *staffRepo) GetStaffByPhone(ctx context.Context, phone string) (domain.StaffIdentity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff_identities WHERE phone = ?`, phone)
	return scanStaff(row)
}

func (r *staffRepo) CreateStaff(ctx context.Context, s domain.StaffIdentity) error {
	// The role column carries a CHECK constraint, but validating here keeps
	// the error legible instead of a raw constraint violation.
	if _, err := domain.ParseStaffRole(s.Role.String()); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO staff_identities (id, phone, email, name, password_hash, role, active, twofa_secret, last_login, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.Phone,
		mapOptionalString(s.Email),
		s.Name,
		s.PasswordHash,
		s.Role.String(),
		s.Active,
		mapOptionalString(s.TwoFASecret),
		mapOptionalTime(s.LastLogin),
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *staffRepo) UpdateStaffLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE staff_identities SET last_login = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), at.UTC(), id)
	return err
}

func scanStaff(row *sql.Row) (domain.StaffIdentity, error) {
	var (
		s         domain.StaffIdentity
		email     sql.NullString
		role      string
		secret    sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.Phone, &email, &s.Name, &s.PasswordHash, &role,
		&s.Active, &secret, &lastLogin, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.StaffIdentity{}, mapNotFound(err)
	}
	s.Email = mapNullStringPtr(email)
	s.Role = domain.StaffRole(role)
	s.TwoFASecret = mapNullStringPtr(secret)
	s.LastLogin = mapNullTimePtr(lastLogin)
	return s, nil
}
