package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/store/drivers/sqlite"
	"github.com/stardiary/stardiary/pkg/cryptox"
	"github.com/stardiary/stardiary/pkg/idx"
	"github.com/stardiary/stardiary/pkg/jwtx"
)

const testPassword = "sunny-meadow-7"

var phoneSeq = make(chan int)

func init() {
	go func() {
		for i := 0; ; i++ {
			phoneSeq <- i
		}
	}()
}

// nextPhone returns a unique valid +7 phone per call so seeds never collide
// on the phone unique index.
func nextPhone() string {
	return fmt.Sprintf("+7900%07d", <-phoneSeq)
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "auth.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestCodec() *jwtx.Codec {
	return &jwtx.Codec{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "stardiary-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func seedAccount(t *testing.T, st *sqlite.Store, role domain.Role) domain.Account {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	account := domain.Account{
		ID:           idx.New().String(),
		Phone:        nextPhone(),
		Name:         "Seed Parent",
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Accounts().CreateAccount(context.Background(), account))
	return account
}

func seedChild(t *testing.T, st *sqlite.Store, accountID string) domain.Child {
	t.Helper()

	child := domain.Child{
		ID:        idx.New().String(),
		AccountID: accountID,
		Name:      "Seed Child",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Children().CreateChild(context.Background(), child))
	return child
}

func seedStaff(t *testing.T, st *sqlite.Store, active bool, twoFASecret *string) domain.StaffIdentity {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	staff := domain.StaffIdentity{
		ID:           idx.New().String(),
		Phone:        nextPhone(),
		Name:         "Seed Staff",
		PasswordHash: hash,
		Role:         domain.StaffRoleSupport,
		Active:       active,
		TwoFASecret:  twoFASecret,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Staff().CreateStaff(context.Background(), staff))
	return staff
}
