package handlers

import "net/http"

// GetChallenge handles GET /api/challenge. The client keeps the secret
// and submits only the hash with new messages.
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	pair, err := h.svc.GenerateChallenge()
	if err != nil {
		h.Err(w, err)
		return
	}
	h.JSON(w, http.StatusOK, pair)
}
