package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/store"
	"github.com/stardiary/stardiary/pkg/cryptox"
	"github.com/stardiary/stardiary/pkg/idx"
	"github.com/stardiary/stardiary/pkg/jwtx"
)

func TestStaffLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	codec := newTestCodec()
	svc := &StaffAuthService{Store: st, Codec: codec}

	t.Run("active staff logs in by phone", func(t *testing.T) {
		staff := seedStaff(t, st, true, nil)

		pair, err := svc.Login(ctx, staff.Phone, testPassword, "", "workstation")
		require.NoError(t, err)

		claims, err := codec.Verify(pair.AccessToken, jwtx.KindAccess)
		require.NoError(t, err)
		require.Equal(t, staff.ID, claims.Subject)
		require.True(t, claims.Staff)
		require.Equal(t, staff.Role.String(), claims.Role)

		// last_login recorded
		updated, err := st.Staff().GetStaffByID(ctx, staff.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.LastLogin)
	})

	t.Run("wrong password", func(t *testing.T) {
		staff := seedStaff(t, st, true, nil)
		_, err := svc.Login(ctx, staff.Phone, "wrong-password", "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown phone", func(t *testing.T) {
		_, err := svc.Login(ctx, "+79998887766", testPassword, "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated staff is forbidden", func(t *testing.T) {
		staff := seedStaff(t, st, false, nil)
		_, err := svc.Login(ctx, staff.Phone, testPassword, "", "")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("totp enforced when enrolled", func(t *testing.T) {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      "stardiary-test",
			AccountName: "staff@test",
		})
		require.NoError(t, err)
		secret := key.Secret()
		staff := seedStaff(t, st, true, &secret)

		// Missing code tells the client to prompt for one
		_, err = svc.Login(ctx, staff.Phone, testPassword, "", "")
		require.ErrorIs(t, err, ErrOTPRequired)

		// Wrong code is just invalid credentials
		_, err = svc.Login(ctx, staff.Phone, testPassword, "000000", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		pair, err := svc.Login(ctx, staff.Phone, testPassword, code, "")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
	})
}

func TestStaffIdentityModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	newStaff := func() domain.StaffIdentity {
		hash, err := cryptox.HashPassword(testPassword)
		require.NoError(t, err)
		now := time.Now().UTC()
		return domain.StaffIdentity{
			ID:           idx.New().String(),
			Phone:        nextPhone(),
			Name:         "Seed Staff",
			PasswordHash: hash,
			Role:         domain.StaffRoleSupport,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	t.Run("role outside the closed set is rejected", func(t *testing.T) {
		s := newStaff()
		s.Role = domain.StaffRole("psychologist")
		require.Error(t, st.Staff().CreateStaff(ctx, s))

		_, err := st.Staff().GetStaffByID(ctx, s.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("every closed-set role is accepted", func(t *testing.T) {
		for _, role := range []domain.StaffRole{
			domain.StaffRoleAdmin, domain.StaffRoleSupport, domain.StaffRoleModerator,
		} {
			s := newStaff()
			s.Role = role
			require.NoError(t, st.Staff().CreateStaff(ctx, s))

			got, err := st.Staff().GetStaffByID(ctx, s.ID)
			require.NoError(t, err)
			require.Equal(t, role, got.Role)
		}
	})

	t.Run("email is unique when present", func(t *testing.T) {
		email := "mod@stardiary.test"

		first := newStaff()
		first.Email = &email
		require.NoError(t, st.Staff().CreateStaff(ctx, first))

		got, err := st.Staff().GetStaffByID(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Email)
		require.Equal(t, email, *got.Email)

		second := newStaff()
		second.Email = &email
		require.ErrorIs(t, st.Staff().CreateStaff(ctx, second), store.ErrAlreadyExists)

		// Multiple staff without an email never collide
		require.NoError(t, st.Staff().CreateStaff(ctx, newStaff()))
		require.NoError(t, st.Staff().CreateStaff(ctx, newStaff()))
	})
}

func TestStaffRotate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	codec := newTestCodec()
	svc := &StaffAuthService{Store: st, Codec: codec}

	t.Run("rotation spends the old token", func(t *testing.T) {
		staff := seedStaff(t, st, true, nil)
		pair, err := svc.Login(ctx, staff.Phone, testPassword, "", "")
		require.NoError(t, err)

		fresh, err := svc.Rotate(ctx, pair.RefreshToken, "")
		require.NoError(t, err)
		require.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

		_, err = svc.Rotate(ctx, pair.RefreshToken, "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivation takes effect on rotation", func(t *testing.T) {
		staff := seedStaff(t, st, false, nil)

		// Mint a ledger-backed pair directly, as if issued before the
		// identity was deactivated.
		pair, err := issuePair(ctx, codec, st.RefreshTokens(), jwtx.Identity{
			Subject: staff.ID,
			Role:    staff.Role.String(),
			Staff:   true,
		}, domain.NamespaceStaff, "", time.Now().UTC())
		require.NoError(t, err)

		_, err = svc.Rotate(ctx, pair.RefreshToken, "")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("account-namespace token cannot rotate as staff", func(t *testing.T) {
		account := seedAccount(t, st, domain.RoleParent)
		authSvc := &AuthService{Store: st, Codec: codec}
		pair, err := authSvc.Login(ctx, account.Phone, testPassword, "")
		require.NoError(t, err)

		_, err = svc.Rotate(ctx, pair.RefreshToken, "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
