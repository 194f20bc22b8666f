package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/stardiary/stardiary/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, namespace, subject_id, token_hash, device_info, issued_at, revoked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Namespace,
		t.SubjectID,
		t.TokenHash,
		t.DeviceInfo,
		t.IssuedAt.UTC(),
		mapOptionalTime(t.RevokedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetValidRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, namespace, subject_id, token_hash, device_info, issued_at, revoked_at
		 FROM refresh_tokens WHERE token_hash = ? AND revoked_at IS NULL`, hash)

	var (
		t       domain.RefreshToken
		revoked sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Namespace, &t.SubjectID, &t.TokenHash, &t.DeviceInfo, &t.IssuedAt, &revoked)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.RevokedAt = mapNullTimePtr(revoked)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		at.UTC(), hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *refreshTokensRepo) RevokeAllForSubject(
	ctx context.Context,
	namespace, subjectID string,
	at time.Time,
) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ?
		 WHERE namespace = ? AND subject_id = ? AND revoked_at IS NULL`,
		at.UTC(), namespace, subjectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) PurgeRevoked(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens
		 WHERE (revoked_at IS NOT NULL AND revoked_at < ?) OR issued_at < ?`,
		olderThan.UTC(), olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
