package http

import (
	"encoding/json"
	"net/http"

	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/pkg/httpx"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// StaffAuthHandler serves login, refresh, and logout for staff identities.
// Staff sessions live in their own cookie path so a browser used for both
// roles never sends the wrong refresh token.
type StaffAuthHandler struct {
	StaffService *service.StaffAuthService
	Cookies      cookieConfig
}

// HandleLogin serves POST /v1/staff/login.
func (h *StaffAuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
		OTP      string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Phone == "" || req.Password == "" {
		errInvalidRequest("phone and password are required").WriteError(w)
		return
	}

	pair, err := h.StaffService.Login(ctx, req.Phone, req.Password, req.OTP, r.UserAgent())
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleRefresh serves POST /v1/staff/refresh.
func (h *StaffAuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
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

	pair, err := h.StaffService.Rotate(ctx, raw, r.UserAgent())
	if err != nil {
		h.Cookies.clear(w)
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, pair.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleLogout serves POST /v1/staff/logout.
func (h *StaffAuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if raw := refreshFromRequest(r, req.RefreshToken); raw != "" {
		if err := h.StaffService.Revoke(ctx, raw); err != nil {
			log.Warn("staff revoke failed", "err", err)
		}
	}

	h.Cookies.clear(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
