package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/store"
	"github.com/stardiary/stardiary/pkg/cryptox"
	"github.com/stardiary/stardiary/pkg/idx"
	"github.com/stardiary/stardiary/pkg/jwtx"
	"github.com/stardiary/stardiary/pkg/phonex"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// MinPasswordLength is the minimum accepted account password length.
const MinPasswordLength = 6

// AuthService handles parent/admin account registration, password login,
// and refresh token rotation for the account namespace.
type AuthService struct {
	Store store.Store
	Codec *jwtx.Codec
}

// RegisterParams carries the input for account registration.
type RegisterParams struct {
	Phone      string
	Email      string
	Name       string
	Password   string
	Role       string
	DeviceInfo string
}

// Register creates a parent or admin account and logs it in.
//
// Phones are normalized to +7 canonical form before the uniqueness check so
// the same number written differently cannot register twice.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (domain.Account, *domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Validate role: child sessions are minted through access grants,
	// never registered directly.
	role, err := domain.ParseRole(p.Role)
	if err != nil || role == domain.RoleChild {
		return domain.Account{}, nil, ErrValidation
	}

	// 2. Normalize and validate credentials
	phone, err := phonex.Normalize(p.Phone)
	if err != nil {
		return domain.Account{}, nil, ErrValidation
	}
	if len(p.Password) < MinPasswordLength {
		return domain.Account{}, nil, ErrValidation
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return domain.Account{}, nil, ErrValidation
	}

	// 3. Cheap pre-checks for nicer conflict reporting. The unique indexes
	// remain the source of truth at commit time.
	if _, err := s.Store.Accounts().GetAccountByPhone(ctx, phone); err == nil {
		return domain.Account{}, nil, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, nil, err
	}

	email := strings.TrimSpace(strings.ToLower(p.Email))
	var emailPtr *string
	if email != "" {
		if _, err := s.Store.Accounts().GetAccountByEmail(ctx, email); err == nil {
			return domain.Account{}, nil, ErrConflict
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, nil, err
		}
		emailPtr = &email
	}

	// 4. Hash the password
	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.Account{}, nil, err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Phone:        phone,
		Email:        emailPtr,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 5. Create the account and its first refresh token atomically
	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrConflict
			}
			return err
		}

		pair, err = issuePair(ctx, s.Codec, tx.RefreshTokens(), jwtx.Identity{
			Subject: account.ID,
			Role:    role.String(),
		}, domain.NamespaceAccount, p.DeviceInfo, now)
		return err
	})
	if err != nil {
		return domain.Account{}, nil, err
	}

	l.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("role", role.String()),
	)
	return account, pair, nil
}

// Authenticate resolves a login string (phone or email) to an account and
// verifies the password. Anything that looks like a phone number is treated
// as one; email lookup is the fallback. All failures collapse into
// ErrInvalidCredentials so callers cannot probe which part was wrong.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (domain.Account, error) {
	var (
		account domain.Account
		err     error
	)

	if phone, perr := phonex.Normalize(login); perr == nil {
		account, err = s.Store.Accounts().GetAccountByPhone(ctx, phone)
	} else {
		account, err = s.Store.Accounts().GetAccountByEmail(ctx, strings.TrimSpace(strings.ToLower(login)))
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates an account and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, login, password, deviceInfo string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	account, err := s.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}

	pair, err := issuePair(ctx, s.Codec, s.Store.RefreshTokens(), jwtx.Identity{
		Subject: account.ID,
		Role:    account.Role.String(),
	}, domain.NamespaceAccount, deviceInfo, now)
	if err != nil {
		return nil, err
	}

	l.Info("account logged in", slog.String("account_id", account.ID))
	return pair, nil
}

// Rotate exchanges a valid refresh token for a new pair, revoking the old
// token. Revocation and creation happen in one transaction so a presented
// token can only ever be rotated once, even under concurrent requests.
func (s *AuthService) Rotate(ctx context.Context, rawRefresh, deviceInfo string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	// 1. Verify the JWT envelope before touching the ledger
	claims, err := s.Codec.Verify(rawRefresh, jwtx.KindRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	fp := cryptox.FingerprintToken(rawRefresh)

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 2. The ledger row must still be live
		rt, err := tx.RefreshTokens().GetValidRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if rt.Namespace != domain.NamespaceAccount || rt.SubjectID != claims.Subject {
			return ErrInvalidCredentials
		}

		// 3. Re-read the account so role changes and deletions take effect
		// on the next rotation, not at access-token expiry.
		account, err := tx.Accounts().GetAccountByID(ctx, rt.SubjectID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}

		id := jwtx.Identity{
			Subject: account.ID,
			Role:    account.Role.String(),
		}

		// 4. Child sessions rotate as child sessions. The subject of a child
		// token is the parent account, so the stored role would wrongly
		// upgrade the session to parent.
		if claims.Role == domain.RoleChild.String() || claims.ChildID != "" {
			id.Role = domain.RoleChild.String()
			id.ChildID = claims.ChildID
			if id.ChildID == "" {
				children, err := tx.Children().ListChildrenByAccountID(ctx, account.ID)
				if err != nil {
					return err
				}
				if len(children) == 0 {
					return ErrInvalidCredentials
				}
				id.ChildID = children[0].ID
			}
		}

		// 5. Revoke the presented token. Zero rows means a concurrent
		// rotation already spent it; treat the replay as invalid.
		revoked, err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp, now)
		if err != nil {
			return err
		}
		if !revoked {
			l.Warn("refresh token replay detected", slog.String("subject_id", rt.SubjectID))
			return ErrInvalidCredentials
		}

		pair, err = issuePair(ctx, s.Codec, tx.RefreshTokens(), id, domain.NamespaceAccount, deviceInfo, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Revoke revokes a single refresh token by its raw value. Revoking an
// unknown or already revoked token is not an error.
func (s *AuthService) Revoke(ctx context.Context, rawRefresh string) error {
	now := time.Now().UTC()
	_, err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(rawRefresh), now)
	return err
}

// RevokeAll revokes every live refresh token for a subject in the account
// namespace, ending all of its sessions including child sessions.
func (s *AuthService) RevokeAll(ctx context.Context, subjectID string) (int64, error) {
	now := time.Now().UTC()
	return s.Store.RefreshTokens().RevokeAllForSubject(ctx, domain.NamespaceAccount, subjectID, now)
}

// issuePair mints an access/refresh pair for the identity and records the
// refresh token's fingerprint in the ledger.
func issuePair(
	ctx context.Context,
	codec *jwtx.Codec,
	tokens store.RefreshTokens,
	id jwtx.Identity,
	namespace, deviceInfo string,
	now time.Time,
) (*domain.TokenPair, error) {
	access, err := codec.IssueAccess(id)
	if err != nil {
		return nil, err
	}
	refresh, err := codec.IssueRefresh(id)
	if err != nil {
		return nil, err
	}

	err = tokens.CreateRefreshToken(ctx, domain.RefreshToken{
		ID:         idx.New().String(),
		Namespace:  namespace,
		SubjectID:  id.Subject,
		TokenHash:  cryptox.FingerprintToken(refresh),
		DeviceInfo: deviceInfo,
		IssuedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    codec.AccessTTL,
	}, nil
}
