package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/store"
	"github.com/stardiary/stardiary/pkg/cryptox"
	"github.com/stardiary/stardiary/pkg/jwtx"
	"github.com/stardiary/stardiary/pkg/phonex"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// StaffAuthService handles logins for staff identities. Staff live in their
// own table and their refresh tokens in the staff namespace, so a staff ID
// colliding with an account ID can never cross session boundaries.
type StaffAuthService struct {
	Store store.Store
	Codec *jwtx.Codec
}

// Login authenticates a staff member by phone and password. Identities with
// a TOTP secret enrolled must also present a valid code; an empty code is
// reported as ErrOTPRequired so clients know to prompt for one.
func (s *StaffAuthService) Login(ctx context.Context, phone, password, otpCode, deviceInfo string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Staff log in by phone only
	normalized, err := phonex.Normalize(phone)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	staff, err := s.Store.Staff().GetStaffByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify the password before revealing anything about the identity,
	// including whether it is deactivated.
	if err := cryptox.VerifyPassword(password, staff.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. Deactivated staff cannot log in regardless of credentials
	if !staff.Active {
		l.Warn("deactivated staff login attempt", slog.String("staff_id", staff.ID))
		return nil, ErrForbidden
	}

	// 4. Enforce TOTP when enrolled
	if staff.TwoFASecret != nil && *staff.TwoFASecret != "" {
		if otpCode == "" {
			return nil, ErrOTPRequired
		}
		if !totp.Validate(otpCode, *staff.TwoFASecret) {
			return nil, ErrInvalidCredentials
		}
	}

	// 5. A role outside the closed set never becomes a token claim
	if _, err := domain.ParseStaffRole(staff.Role.String()); err != nil {
		l.Error("staff record carries an unknown role",
			slog.String("staff_id", staff.ID),
			slog.String("role", staff.Role.String()))
		return nil, ErrForbidden
	}

	if err := s.Store.Staff().UpdateStaffLastLogin(ctx, staff.ID, now); err != nil {
		return nil, err
	}

	pair, err := issuePair(ctx, s.Codec, s.Store.RefreshTokens(), jwtx.Identity{
		Subject: staff.ID,
		Role:    staff.Role.String(),
		Staff:   true,
	}, domain.NamespaceStaff, deviceInfo, now)
	if err != nil {
		return nil, err
	}

	l.Info("staff logged in", slog.String("staff_id", staff.ID))
	return pair, nil
}

// Rotate exchanges a staff refresh token for a new pair. The identity's
// active flag is re-checked so deactivation takes effect on the next
// rotation rather than at refresh-token expiry.
func (s *StaffAuthService) Rotate(ctx context.Context, rawRefresh, deviceInfo string) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	claims, err := s.Codec.Verify(rawRefresh, jwtx.KindRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	fp := cryptox.FingerprintToken(rawRefresh)

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetValidRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if rt.Namespace != domain.NamespaceStaff || rt.SubjectID != claims.Subject {
			return ErrInvalidCredentials
		}

		staff, err := tx.Staff().GetStaffByID(ctx, rt.SubjectID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if !staff.Active {
			return ErrForbidden
		}
		if _, err := domain.ParseStaffRole(staff.Role.String()); err != nil {
			return ErrForbidden
		}

		revoked, err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp, now)
		if err != nil {
			return err
		}
		if !revoked {
			return ErrInvalidCredentials
		}

		pair, err = issuePair(ctx, s.Codec, tx.RefreshTokens(), jwtx.Identity{
			Subject: staff.ID,
			Role:    staff.Role.String(),
			Staff:   true,
		}, domain.NamespaceStaff, deviceInfo, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke revokes a single staff refresh token. Idempotent.
func (s *StaffAuthService) Revoke(ctx context.Context, rawRefresh string) error {
	now := time.Now().UTC()
	_, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(rawRefresh), now)
	return err
}

// RevokeAll ends every live staff session for the subject.
func (s *StaffAuthService) RevokeAll(ctx context.Context, subjectID string) (int64, error) {
	now := time.Now().UTC()
	return s.Store.RefreshTokens().RevokeAllForSubject(ctx, domain.NamespaceStaff, subjectID, now)
}
