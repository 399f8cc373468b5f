package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rpnow/rpnow2/internal/rp"
)

// CreateRoomResponse is returned on room creation. The code is the
// room's permanent identifier and the only way to reach it.
type CreateRoomResponse struct {
	RPCode string `json:"rpCode"`
}

// CreateRoom handles POST /api/rp.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	input, err := h.decode(r, rp.CodeBadRP)
	if err != nil {
		h.Err(w, err)
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), input)
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, CreateRoomResponse{RPCode: room.Code})
}

// GetRoom handles GET /api/rp/{rpCode}: the full room, every message
// plus the chara roster.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	view, err := h.svc.GetRoom(r.Context(), code)
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusOK, view)
}

// GetPage handles GET /api/rp/{rpCode}/page/{page}.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		h.Err(w, &rp.Error{Code: rp.CodeBadRPCode, Details: "page must be a positive integer"})
		return
	}

	view, err := h.svc.GetPage(r.Context(), code, page)
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusOK, view)
}

// Stream handles GET /api/rp/{rpCode}/stream: a websocket feed of the
// room's change events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	// Reject unknown rooms before upgrading.
	room, err := h.svc.Store().GetRoomByCode(r.Context(), code)
	if err != nil {
		h.Err(w, err)
		return
	}
	if room == nil {
		h.Err(w, &rp.Error{Code: rp.CodeRPNotFound})
		return
	}

	h.hub.Serve(w, r, code)
}
