package sqlite

import (
	"context"
	"database/sql"

	"github.com/stardiary/stardiary/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, phone, email, name, password_hash, role, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByPhone(ctx context.Context, phone string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE phone = ?`, phone)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, phone, email, name, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Phone,
		mapOptionalString(a.Email),
		a.Name,
		a.PasswordHash,
		string(a.Role),
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var (
		a     domain.Account
		email sql.NullString
		role  string
	)
	err := row.Scan(&a.ID, &a.Phone, &email, &a.Name, &a.PasswordHash, &role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.Email = mapNullStringPtr(email)
	a.Role = domain.Role(role)
	return a, nil
}
