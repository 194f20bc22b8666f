package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/stardiary/stardiary/internal/auth/domain"
)

type childAccessRepo struct {
	db dbtx
}

const childAccessColumns = `id, child_id, pin_hash, qr_token, qr_valid_from, qr_expires_at,
	qr_consumed_at, active, failed_attempts, locked_until, created_at, updated_at`

func (r *childAccessRepo) GetChildAccessByChildID(ctx context.Context, childID string) (domain.ChildAccess, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+childAccessColumns+` FROM child_access WHERE child_id = ?`, childID)
	return scanChildAccess(row)
}

func (r *childAccessRepo) CreateChildAccess(ctx context.Context, a domain.ChildAccess) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO child_access (id, child_id, pin_hash, qr_token, qr_valid_from, qr_expires_at,
		 qr_consumed_at, active, failed_attempts, locked_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.ChildID,
		mapOptionalString(a.PINHash),
		mapOptionalString(a.QRToken),
		a.QRValidFrom.UTC(),
		a.QRExpiresAt.UTC(),
		mapOptionalTime(a.QRConsumedAt),
		a.Active,
		a.FailedAttempts,
		mapOptionalTime(a.LockedUntil),
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

// ReplaceChildAccess upserts on child_id: a re-issued grant resets the PIN,
// QR window, consumption marker, lockout counters and reactivates the record.
func (r *childAccessRepo) ReplaceChildAccess(ctx context.Context, a domain.ChildAccess) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO child_access (id, child_id, pin_hash, qr_token, qr_valid_from, qr_expires_at,
		 qr_consumed_at, active, failed_attempts, locked_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, 1, 0, NULL, ?, ?)
		 ON CONFLICT(child_id) DO UPDATE SET
		   pin_hash = excluded.pin_hash,
		   qr_token = excluded.qr_token,
		   qr_valid_from = excluded.qr_valid_from,
		   qr_expires_at = excluded.qr_expires_at,
		   qr_consumed_at = NULL,
		   active = 1,
		   failed_attempts = 0,
		   locked_until = NULL,
		   updated_at = excluded.updated_at`,
		a.ID,
		a.ChildID,
		mapOptionalString(a.PINHash),
		mapOptionalString(a.QRToken),
		a.QRValidFrom.UTC(),
		a.QRExpiresAt.UTC(),
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

// ConsumeQRToken marks the token consumed in a single compare-and-set so
// concurrent logins with the same token produce exactly one winner. The
// token must be unconsumed, unexpired, on an active record, and inside the
// login window measured from qr_valid_from.
func (r *childAccessRepo) ConsumeQRToken(
	ctx context.Context,
	token string,
	now time.Time,
	window time.Duration,
) (domain.ChildAccess, error) {
	now = now.UTC()
	row := r.db.QueryRowContext(ctx,
		`UPDATE child_access
		 SET qr_consumed_at = ?, updated_at = ?
		 WHERE qr_token = ?
		   AND active = 1
		   AND qr_consumed_at IS NULL
		   AND qr_expires_at >= ?
		   AND qr_valid_from <= ?
		   AND qr_valid_from >= ?
		 RETURNING `+childAccessColumns,
		now, now, token, now, now, now.Add(-window))
	return scanChildAccess(row)
}

// IncrementFailedAttempts bumps the counter atomically and reports the new
// value so the caller can decide whether the lock threshold was crossed.
func (r *childAccessRepo) IncrementFailedAttempts(ctx context.Context, id string, now time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE child_access
		 SET failed_attempts = failed_attempts + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING failed_attempts`,
		now.UTC(), id)

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *childAccessRepo) ResetFailures(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE child_access
		 SET failed_attempts = 0, locked_until = NULL, updated_at = ?
		 WHERE id = ?`,
		now.UTC(), id)
	return err
}

func (r *childAccessRepo) LockChildAccess(ctx context.Context, id string, until, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE child_access
		 SET locked_until = ?, failed_attempts = 0, updated_at = ?
		 WHERE id = ?`,
		until.UTC(), now.UTC(), id)
	return err
}

func (r *childAccessRepo) SetPINHash(ctx context.Context, id, hash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE child_access SET pin_hash = ?, updated_at = ? WHERE id = ?`,
		hash, now.UTC(), id)
	return err
}

func (r *childAccessRepo) ClearExpiredQRTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE child_access
		 SET qr_token = NULL, updated_at = ?
		 WHERE qr_token IS NOT NULL AND qr_consumed_at IS NULL AND qr_expires_at < ?`,
		now.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanChildAccess(row *sql.Row) (domain.ChildAccess, error) {
	var (
		a        domain.ChildAccess
		pinHash  sql.NullString
		qrToken  sql.NullString
		consumed sql.NullTime
		locked   sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.ChildID, &pinHash, &qrToken, &a.QRValidFrom, &a.QRExpiresAt,
		&consumed, &a.Active, &a.FailedAttempts, &locked, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.ChildAccess{}, mapNotFound(err)
	}
	a.PINHash = mapNullStringPtr(pinHash)
	a.QRToken = mapNullStringPtr(qrToken)
	a.QRConsumedAt = mapNullTimePtr(consumed)
	a.LockedUntil = mapNullTimePtr(locked)
	return a, nil
}
