package http

import (
	"encoding/json"
	"net/http"

	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/pkg/httpx"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// childSessionResponse extends the token pair with the child identity and a
// flag telling the client to walk the child through PIN setup.
type childSessionResponse struct {
	tokenResponse

	ChildID     string `json:"child_id"`
	PINRequired bool   `json:"pin_required"`
}

func newChildSessionResponse(s *service.ChildSession) childSessionResponse {
	return childSessionResponse{
		tokenResponse: newTokenResponse(&s.TokenPair),
		ChildID:       s.ChildID,
		PINRequired:   s.PINRequired,
	}
}

// ChildLoginHandler serves the child-facing login endpoints: QR redemption,
// PIN login, and first-time PIN setup.
type ChildLoginHandler struct {
	ChildAccessService *service.ChildAccessService
	Cookies            cookieConfig
}

// HandleQR serves POST /v1/auth/child-qr.
func (h *ChildLoginHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		QRToken string `json:"qr_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.QRToken == "" {
		errInvalidRequest("qr_token is required").WriteError(w)
		return
	}

	session, err := h.ChildAccessService.LoginQR(ctx, req.QRToken, r.UserAgent())
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, session.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newChildSessionResponse(session))
}

// HandlePIN serves POST /v1/auth/child-pin.
func (h *ChildLoginHandler) HandlePIN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		ChildID string `json:"child_id"`
		PIN     string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.ChildID == "" || req.PIN == "" {
		errInvalidRequest("child_id and pin are required").WriteError(w)
		return
	}

	session, err := h.ChildAccessService.LoginPIN(ctx, req.ChildID, req.PIN, r.UserAgent())
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	h.Cookies.set(w, session.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, newChildSessionResponse(session))
}

// HandleSetPIN serves POST /v1/auth/child-pin/set. It requires an
// authenticated child session; the child being changed comes from the token,
// never the body, so one child can never set another's PIN.
func (h *ChildLoginHandler) HandleSetPIN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	childID := httpx.ChildIDFromCtx(ctx)
	if childID == "" {
		errInvalidRequest("token does not identify a child").WriteError(w)
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}

	if err := h.ChildAccessService.SetPIN(ctx, childID, req.PIN); err != nil {
		writeServiceError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
