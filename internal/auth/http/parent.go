package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/stardiary/stardiary/internal/auth/service"
	"github.com/stardiary/stardiary/pkg/httpx"
	"github.com/stardiary/stardiary/pkg/slogx"
)

// ChildAccessHandler serves the parent-side access grant endpoint.
type ChildAccessHandler struct {
	ChildAccessService *service.ChildAccessService
}

// HandleGenerate serves POST /v1/children/{id}/access. The QR token and PIN
// in the response are shown exactly once; only hashes survive server-side.
// Sending {"pin": false} issues a QR-only grant so the child enrolls a PIN
// on first login.
func (h *ChildAccessHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	childID := r.PathValue("id")
	if childID == "" {
		errInvalidRequest("child id is required").WriteError(w)
		return
	}

	// The body is optional; PIN issuance defaults to on.
	var req struct {
		PIN *bool `json:"pin"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	withPIN := req.PIN == nil || *req.PIN

	grant, err := h.ChildAccessService.GenerateAccess(ctx, httpx.SubjectIDFromCtx(ctx), childID, withPIN)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, struct {
		QRToken   string    `json:"qr_token"`
		PIN       string    `json:"pin,omitempty"`
		ExpiresAt time.Time `json:"expires_at"`
		PINSet    bool      `json:"pin_set"`
	}{
		QRToken:   grant.QRToken,
		PIN:       grant.PIN,
		ExpiresAt: grant.ExpiresAt,
		PINSet:    grant.PINSet,
	})
}
