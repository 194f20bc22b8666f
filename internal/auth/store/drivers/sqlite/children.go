package sqlite

import (
	"context"

	"github.com/stardiary/stardiary/internal/auth/domain"
)

type childrenRepo struct {
	db dbtx
}

func (r *childrenRepo) GetChildByID(ctx context.Context, id string) (domain.Child, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, name, created_at FROM children WHERE id = ?`, id)

	var c domain.Child
	if err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.CreatedAt); err != nil {
		return domain.Child{}, mapNotFound(err)
	}
	return c, nil
}

func (r *childrenRepo) ListChildrenByAccountID(ctx context.Context, accountID string) ([]domain.Child, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, name, created_at FROM children
		 WHERE account_id = ? ORDER BY created_at ASC, id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Child
	for rows.Next() {
		var c domain.Child
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *childrenRepo) CreateChild(ctx context.Context, c domain.Child) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO children (id, account_id, name, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.AccountID, c.Name, c.CreatedAt.UTC())
	return mapConstraint(err)
}
