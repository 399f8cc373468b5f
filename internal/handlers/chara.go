package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpnow/rpnow2/internal/rp"
)

// PostChara handles POST /api/rp/{rpCode}/chara.
func (h *Handler) PostChara(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	input, err := h.decode(r, rp.CodeBadChara)
	if err != nil {
		h.Err(w, err)
		return
	}

	chara, err := h.svc.AddChara(r.Context(), code, connID(r), input)
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, chara)
}
