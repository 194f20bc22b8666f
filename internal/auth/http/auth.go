package http

import (
	"encoding/json"
	"net/http"

	"github.com/stardiary/stardiary/internal/auth/domain"
	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/pkg/httpx"
	"github.com/stardiary/stardiary/pkg/jwtx"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// tokenResponse is the wire form of a token pair. expires_in is in seconds
// per OAuth2 convention.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
	}
}

type accountResponse struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthHandler serves registration, login, refresh, and logout for product
// accounts. The refresh token is returned in the body for app clients and
// mirrored into an HttpOnly cookie for browser clients.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookies     cookieConfig
}

// HandleRegister serves POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleParent.String()
	}

	account, pair, err := h.AuthService.Register(ctx, service.RegisterParams{
		Phone:      req.Phone,
		Email:      req.Email,
		Name:       req.Name,
		Password:   req.Password,
		Role:       req.Role,
		DeviceInfo: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, pair.RefreshToken)

	email := ""
	if account.Email != nil {
		email = *account.Email
	}
	httpx.WriteJSON(w, http.StatusCreated, struct {
		Account accountResponse `json:"account"`
		tokenResponse
	}{
		Account: accountResponse{
			ID:    account.ID,
			Phone: account.Phone,
			Email: email,
			Name:  account.Name,
			Role:  account.Role.String(),
		},
		tokenResponse: newTokenResponse(pair),
	})
}

// HandleLogin serves POST /v1/auth/login. The login field accepts a phone
// number in any common format or an email address.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Login == "" || req.Password == "" {
		errInvalidRequest("login and password are required").WriteError(w)
		return
	}

	pair, err := h.AuthService.Login(ctx, req.Login, req.Password, r.UserAgent())
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleRefresh serves POST /v1/auth/refresh. The refresh token comes from
// the body or the cookie; rotation always spends it.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	raw := refreshFromRequest(r, req.RefreshToken)
	if raw == "" {
		errInvalidRequest("refresh_token is required").WriteError(w)
		return
	}

	pair, err := h.AuthService.Rotate(ctx, raw, r.UserAgent())
	if err != nil {
		h.Cookies.clear(w)
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleLogout serves POST /v1/auth/logout. Always clears the cookie and
// returns 204, even for unknown tokens, so logout cannot fail client-side.
// With ?everywhere=1 every session of the subject is revoked.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	raw := refreshFromRequest(r, req.RefreshToken)
	if raw != "" {
		if r.URL.Query().Get("everywhere") == "1" {
			// The token names the subject whose sessions end everywhere.
			if claims, err := h.AuthService.Codec.Verify(raw, jwtx.KindRefresh); err == nil {
				if _, err := h.AuthService.RevokeAll(ctx, claims.Subject); err != nil {
					log.Error("revoke all failed", "err", err)
				}
			}
		} else if err := h.AuthService.Revoke(ctx, raw); err != nil {
			log.Warn("revoke failed", "err", err)
		}
	}

	h.Cookies.clear(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler serves GET /v1/auth/me, echoing the verified token identity.
type MeHandler struct{}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := httpx.ClaimsFromCtx(ctx)
	if !ok {
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		SubjectID string `json:"subject_id"`
		Role      string `json:"role"`
		ChildID   string `json:"child_id,omitempty"`
		Staff     bool   `json:"is_staff,omitempty"`
	}{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		ChildID:   claims.ChildID,
		Staff:     claims.Staff,
	})
}
