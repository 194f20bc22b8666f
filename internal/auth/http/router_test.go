package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/internal/auth/store/drivers/sqlite"
	"github.com/stardiary/stardiary/pkg/cryptox"
	"github.com/stardiary/stardiary/pkg/idx"
	"github.com/stardiary/stardiary/pkg/jwtx"
)

const testPassword = "sunny-meadow-7"

func newTestRouter(t *testing.T) (*Router, *sqlite.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "auth.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec := &jwtx.Codec{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "stardiary-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(codec, "dev", "test", st, logger)
	r.AuthService = &service.AuthService{Store: st, Codec: codec}
	r.StaffService = &service.StaffAuthService{Store: st, Codec: codec}
	r.ChildAccessService = &service.ChildAccessService{Store: st, Codec: codec}
	r.ApplyRoutes()
	return r, st
}

// doJSON performs a request against the router and decodes the JSON reply
// into out (when out is non-nil and the body is JSON).
func doJSON(t *testing.T, r *Router, method, path, bearer string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func registerParent(t *testing.T, r *Router, phone string) tokenResponse {
	t.Helper()

	var resp struct {
		Account accountResponse `json:"account"`
		tokenResponse
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"phone":    phone,
		"name":     "Anna",
		"password": testPassword,
	}, &resp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, resp.Account.ID)
	return resp.tokenResponse
}

func TestAuthEndpoints(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	pair := registerParent(t, r, "+79001112233")

	t.Run("me returns the token identity", func(t *testing.T) {
		var me struct {
			SubjectID string `json:"subject_id"`
			Role      string `json:"role"`
		}
		rec := doJSON(t, r, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil, &me)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, me.SubjectID)
		require.Equal(t, "parent", me.Role)
	})

	t.Run("me rejects missing and garbage tokens", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/auth/me", "", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/auth/me", "garbage", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login sets the refresh cookie", func(t *testing.T) {
		var fresh tokenResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"login":    "8 900 111-22-33",
			"password": testPassword,
		}, &fresh)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEmpty(t, fresh.AccessToken)

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == refreshCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		require.Equal(t, fresh.RefreshToken, cookie.Value)
		require.True(t, cookie.HttpOnly)
		require.Equal(t, authCookiePath, cookie.Path)
	})

	t.Run("bad credentials", func(t *testing.T) {
		var body errorResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"login":    "+79001112233",
			"password": "wrong-password",
		}, &body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", body.Error)
	})

	t.Run("refresh rotates and spends the old token", func(t *testing.T) {
		var fresh tokenResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, &fresh)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

		rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		pair = fresh
	})

	t.Run("logout clears the cookie and revokes", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == refreshCookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		require.True(t, cleared)

		rec = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		var body errorResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"phone":    "+7 (900) 111-22-33",
			"name":     "Imposter",
			"password": testPassword,
		}, &body)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "already_exists", body.Error)
	})
}

func TestChildAccessEndpoints(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)
	pair := registerParent(t, r, "+79002223344")

	var me struct {
		SubjectID string `json:"subject_id"`
	}
	rec := doJSON(t, r, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)

	child := domain.Child{
		ID:        idx.New().String(),
		AccountID: me.SubjectID,
		Name:      "Mila",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Children().CreateChild(t.Context(), child))

	var grant struct {
		QRToken string `json:"qr_token"`
		PIN     string `json:"pin"`
	}
	rec = doJSON(t, r, http.MethodPost, "/v1/children/"+child.ID+"/access", pair.AccessToken, nil, &grant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, grant.QRToken)
	require.Len(t, grant.PIN, cryptox.PINLength)

	var session childSessionResponse
	t.Run("qr login is single use", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/child-qr", "", map[string]string{
			"qr_token": grant.QRToken,
		}, &session)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, child.ID, session.ChildID)
		require.False(t, session.PINRequired)

		rec = doJSON(t, r, http.MethodPost, "/v1/auth/child-qr", "", map[string]string{
			"qr_token": grant.QRToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("child token cannot mint grants", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/children/"+child.ID+"/access", session.AccessToken, nil, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("pin login", func(t *testing.T) {
		var s childSessionResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/child-pin", "", map[string]string{
			"child_id": child.ID,
			"pin":      grant.PIN,
		}, &s)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, child.ID, s.ChildID)
	})

	t.Run("wrong pin reports remaining attempts", func(t *testing.T) {
		wrong := "0000"
		if grant.PIN == wrong {
			wrong = "1111"
		}
		var body errorResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/child-pin", "", map[string]string{
			"child_id": child.ID,
			"pin":      wrong,
		}, &body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", body.Error)
		require.Contains(t, body.ErrorDescription, "attempts remaining")
	})

	t.Run("set pin requires a child session and is one-shot", func(t *testing.T) {
		// Parent tokens are rejected by the role gate
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/child-pin/set", pair.AccessToken,
			map[string]string{"pin": "1234"}, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		// The grant already set a PIN, so the child cannot overwrite it
		var body errorResponse
		rec = doJSON(t, r, http.MethodPost, "/v1/auth/child-pin/set", session.AccessToken,
			map[string]string{"pin": "1234"}, &body)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "pin_already_set", body.Error)
	})

	t.Run("foreign parent is forbidden", func(t *testing.T) {
		other := registerParent(t, r, "+79003334455")
		rec := doJSON(t, r, http.MethodPost, "/v1/children/"+child.ID+"/access", other.AccessToken, nil, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPINSetupFlow(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)
	pair := registerParent(t, r, "+79004445566")

	var me struct {
		SubjectID string `json:"subject_id"`
	}
	rec := doJSON(t, r, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil, &me)
	require.Equal(t, http.StatusOK, rec.Code)

	child := domain.Child{
		ID:        idx.New().String(),
		AccountID: me.SubjectID,
		Name:      "Sasha",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Children().CreateChild(t.Context(), child))

	// A QR-only grant defers the PIN to the child
	var grant struct {
		QRToken string `json:"qr_token"`
		PIN     string `json:"pin"`
		PINSet  bool   `json:"pin_set"`
	}
	rec = doJSON(t, r, http.MethodPost, "/v1/children/"+child.ID+"/access", pair.AccessToken,
		map[string]bool{"pin": false}, &grant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, grant.QRToken)
	require.Empty(t, grant.PIN)
	require.False(t, grant.PINSet)

	var session childSessionResponse
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/child-qr", "", map[string]string{
		"qr_token": grant.QRToken,
	}, &session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, session.PINRequired)

	// Malformed pin rejected, then a proper one accepted exactly once
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/child-pin/set", session.AccessToken,
		map[string]string{"pin": "12"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/auth/child-pin/set", session.AccessToken,
		map[string]string{"pin": "4812"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var s childSessionResponse
	rec = doJSON(t, r, http.MethodPost, "/v1/auth/child-pin", "", map[string]string{
		"child_id": child.ID,
		"pin":      "4812",
	}, &s)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.False(t, s.PINRequired)
}

func TestStaffEndpoints(t *testing.T) {
	t.Parallel()

	r, st := newTestRouter(t)

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	staff := domain.StaffIdentity{
		ID:           idx.New().String(),
		Phone:        "+79005556677",
		Name:         "Dr. Lena",
		PasswordHash: hash,
		Role:         domain.StaffRoleModerator,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Staff().CreateStaff(t.Context(), staff))

	var pair tokenResponse
	rec := doJSON(t, r, http.MethodPost, "/v1/staff/login", "", map[string]string{
		"phone":    staff.Phone,
		"password": testPassword,
	}, &pair)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Staff cookie is scoped to the staff path
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.Equal(t, staffCookiePath, cookie.Path)

	t.Run("me shows the staff flag", func(t *testing.T) {
		var me struct {
			SubjectID string `json:"subject_id"`
			Staff     bool   `json:"is_staff"`
		}
		rec := doJSON(t, r, http.MethodGet, "/v1/auth/me", pair.AccessToken, nil, &me)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, staff.ID, me.SubjectID)
		require.True(t, me.Staff)
	})

	t.Run("staff me requires the is_staff claim", func(t *testing.T) {
		var me struct {
			SubjectID string `json:"subject_id"`
			Role      string `json:"role"`
		}
		rec := doJSON(t, r, http.MethodGet, "/v1/staff/me", pair.AccessToken, nil, &me)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, staff.ID, me.SubjectID)
		require.Equal(t, staff.Role.String(), me.Role)

		// A product token is rejected by the staff gate
		parent := registerParent(t, r, "+79005556688")
		rec = doJSON(t, r, http.MethodGet, "/v1/staff/me", parent.AccessToken, nil, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("refresh and logout", func(t *testing.T) {
		var fresh tokenResponse
		rec := doJSON(t, r, http.MethodPost, "/v1/staff/refresh", "", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, &fresh)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = doJSON(t, r, http.MethodPost, "/v1/staff/logout", "", map[string]string{
			"refresh_token": fresh.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodPost, "/v1/staff/refresh", "", map[string]string{
			"refresh_token": fresh.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	var live healthResponse
	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil, &live)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	var ready healthResponse
	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil, &ready)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}

func TestRegistrationRateLimit(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	// The registration profile allows a burst of 3 per IP
	for i := 0; i < 3; i++ {
		rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
			"phone":    fmt.Sprintf("+7900777%04d", i),
			"name":     "Anna",
			"password": testPassword,
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"phone":    "+79007779999",
		"name":     "Anna",
		"password": testPassword,
	}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
