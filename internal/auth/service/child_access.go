package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/store"
	"github.com/stardiary/stardiary/pkg/cryptox"
	"github.com/stardiary/stardiary/pkg/idx"
	"github.com/stardiary/stardiary/pkg/jwtx"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// Child access defaults. A QR grant lives for 30 days but each token must
// be redeemed within an hour of becoming valid; five bad PIN attempts lock
// the record for fifteen minutes.
const (
	DefaultQRTTL          = 30 * 24 * time.Hour
	DefaultQRLoginWindow  = 1 * time.Hour
	DefaultMaxPINAttempts = 5
	DefaultLockDuration   = 15 * time.Minute
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// ChildSession is the result of a successful child login. PINRequired tells
// the client the child has no PIN yet and should be walked through setup.
type ChildSession struct {
	domain.TokenPair

	ChildID     string `json:"child_id"`
	PINRequired bool   `json:"pin_required"`
}

// ChildAccessService manages child access grants: QR issuance, QR and PIN
// logins, PIN setup, and the failed-attempt lockout machine.
type ChildAccessService struct {
	Store store.Store
	Codec *jwtx.Codec

	QRTTL          time.Duration
	QRLoginWindow  time.Duration
	MaxPINAttempts int
	LockDuration   time.Duration
}

// GenerateAccess issues a fresh access grant for a child: a new single-use
// QR token and, when withPIN is set, a new random PIN. Any previous grant is
// replaced and lockout state cleared. A grant without a PIN leaves PIN
// enrollment to the child after the first QR login. Only the owning parent
// account may issue grants.
func (s *ChildAccessService) GenerateAccess(ctx context.Context, parentID, childID string, withPIN bool) (domain.AccessGrant, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Ownership check
	child, err := s.Store.Children().GetChildByID(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccessGrant{}, ErrNotFound
		}
		return domain.AccessGrant{}, err
	}
	if child.AccountID != parentID {
		return domain.AccessGrant{}, ErrForbidden
	}

	// 2. Fresh credentials
	var (
		pin     string
		pinHash *string
	)
	if withPIN {
		pin, err = cryptox.GeneratePIN()
		if err != nil {
			return domain.AccessGrant{}, err
		}
		hash, err := cryptox.HashPassword(pin)
		if err != nil {
			return domain.AccessGrant{}, err
		}
		pinHash = &hash
	}
	qrToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.AccessGrant{}, err
	}

	expiresAt := now.Add(s.qrTTL())

	// 3. Replace the grant; the upsert resets consumption and lockout state
	err = s.Store.ChildAccess().ReplaceChildAccess(ctx, domain.ChildAccess{
		ID:          idx.New().String(),
		ChildID:     childID,
		PINHash:     pinHash,
		QRToken:     &qrToken,
		QRValidFrom: now,
		QRExpiresAt: expiresAt,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.AccessGrant{}, err
	}

	l.Info("child access grant issued",
		slog.String("child_id", childID),
		slog.Bool("pin_set", withPIN),
		slog.Time("expires_at", expiresAt),
	)
	return domain.AccessGrant{
		QRToken:   qrToken,
		PIN:       pin,
		ExpiresAt: expiresAt,
		PINSet:    withPIN,
	}, nil
}

// LoginQR redeems a single-use QR token for a child session. The consume is
// a single compare-and-set, so a token scanned on two devices at once logs
// in exactly one of them.
func (s *ChildAccessService) LoginQR(ctx context.Context, qrToken, deviceInfo string) (*ChildSession, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	access, err := s.Store.ChildAccess().ConsumeQRToken(ctx, qrToken, now, s.qrLoginWindow())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	session, err := s.startSession(ctx, access, deviceInfo, now)
	if err != nil {
		return nil, err
	}

	l.Info("child logged in via qr", slog.String("child_id", access.ChildID))
	return session, nil
}

// LoginPIN authenticates a child by PIN. Failed attempts are counted
// atomically; crossing MaxPINAttempts locks the record for LockDuration.
func (s *ChildAccessService) LoginPIN(ctx context.Context, childID, pin, deviceInfo string) (*ChildSession, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Resolve the access record. Missing and deactivated records are
	// indistinguishable to the caller.
	access, err := s.Store.ChildAccess().GetChildAccessByChildID(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !access.Active {
		return nil, ErrNotFound
	}

	// 2. Honor an existing lock
	if access.LockedUntil != nil && now.Before(*access.LockedUntil) {
		return nil, &LockedError{RetryAfter: access.LockedUntil.Sub(now)}
	}

	// 3. A record without a PIN cannot do PIN login
	if access.PINHash == nil || *access.PINHash == "" {
		return nil, ErrPINNotSet
	}

	// 4. Verify, counting failures atomically so parallel bad attempts
	// cannot dodge the lockout threshold.
	if err := cryptox.VerifyPassword(pin, *access.PINHash); err != nil {
		attempts, ierr := s.Store.ChildAccess().IncrementFailedAttempts(ctx, access.ID, now)
		if ierr != nil {
			return nil, ierr
		}
		if attempts >= s.maxPINAttempts() {
			lock := s.lockDuration()
			if lerr := s.Store.ChildAccess().LockChildAccess(ctx, access.ID, now.Add(lock), now); lerr != nil {
				return nil, lerr
			}
			l.Warn("child access locked after repeated pin failures", slog.String("child_id", childID))
			return nil, &LockedError{RetryAfter: lock}
		}
		return nil, &PINMismatchError{Remaining: s.maxPINAttempts() - attempts}
	}

	// 5. Success clears the failure counter and any expired lock
	if err := s.Store.ChildAccess().ResetFailures(ctx, access.ID, now); err != nil {
		return nil, err
	}

	session, err := s.startSession(ctx, access, deviceInfo, now)
	if err != nil {
		return nil, err
	}

	l.Info("child logged in via pin", slog.String("child_id", childID))
	return session, nil
}

// SetPIN lets a freshly QR-logged-in child choose a PIN. It only works once:
// a record that already has a PIN must go through a new parent-issued grant.
func (s *ChildAccessService) SetPIN(ctx context.Context, childID, pin string) error {
	now := time.Now().UTC()

	if !pinPattern.MatchString(pin) {
		return ErrValidation
	}

	access, err := s.Store.ChildAccess().GetChildAccessByChildID(ctx, childID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !access.Active {
		return ErrNotFound
	}
	if access.PINHash != nil && *access.PINHash != "" {
		return ErrPINAlreadySet
	}

	hash, err := cryptox.HashPassword(pin)
	if err != nil {
		return err
	}
	return s.Store.ChildAccess().SetPINHash(ctx, access.ID, hash, now)
}

// startSession mints a child token pair. Child tokens are subjects of the
// owning parent account with role "child" and the child pinned in child_id.
func (s *ChildAccessService) startSession(
	ctx context.Context,
	access domain.ChildAccess,
	deviceInfo string,
	now time.Time,
) (*ChildSession, error) {
	child, err := s.Store.Children().GetChildByID(ctx, access.ChildID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	pair, err := issuePair(ctx, s.Codec, s.Store.RefreshTokens(), jwtx.Identity{
		Subject: child.AccountID,
		Role:    domain.RoleChild.String(),
		ChildID: child.ID,
	}, domain.NamespaceAccount, deviceInfo, now)
	if err != nil {
		return nil, err
	}

	return &ChildSession{
		TokenPair:   *pair,
		ChildID:     child.ID,
		PINRequired: access.PINHash == nil || *access.PINHash == "",
	}, nil
}

func (s *ChildAccessService) qrTTL() time.Duration {
	if s.QRTTL > 0 {
		return s.QRTTL
	}
	return DefaultQRTTL
}

func (s *ChildAccessService) qrLoginWindow() time.Duration {
	if s.QRLoginWindow > 0 {
		return s.QRLoginWindow
	}
	return DefaultQRLoginWindow
}

func (s *ChildAccessService) maxPINAttempts() int {
	if s.MaxPINAttempts > 0 {
		return s.MaxPINAttempts
	}
	return DefaultMaxPINAttempts
}

func (s *ChildAccessService) lockDuration() time.Duration {
	if s.LockDuration > 0 {
		return s.LockDuration
	}
	return DefaultLockDuration
}
