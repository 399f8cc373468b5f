package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpnow/rpnow2/internal/rp"
	"github.com/rpnow/rpnow2/internal/store"
)

// AdminRoom is one row in the admin room listing.
type AdminRoom struct {
	RPCode    string  `json:"rpCode"`
	Title     string  `json:"title"`
	CreatedAt float64 `json:"createdAt"`
	Online    int     `json:"online"`
}

// AdminStatsResponse summarizes the instance for the admin console.
type AdminStatsResponse struct {
	TotalRooms int64 `json:"total_rooms"`
}

// AdminListRooms handles GET /api/admin/rps.
func (h *Handler) AdminListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.Store().ListRooms(r.Context())
	if err != nil {
		h.Err(w, err)
		return
	}

	out := make([]AdminRoom, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, AdminRoom{
			RPCode:    room.Code,
			Title:     room.Title,
			CreatedAt: room.CreatedAt,
			Online:    h.hub.Online(room.Code),
		})
	}
	h.JSON(w, http.StatusOK, out)
}

// AdminStats handles GET /api/admin/stats.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.Store().CountRooms(r.Context())
	if err != nil {
		h.Err(w, err)
		return
	}
	h.JSON(w, http.StatusOK, AdminStatsResponse{TotalRooms: total})
}

// AdminDestroyRoom handles DELETE /api/admin/rp/{rpCode}. The room and
// everything in it is gone for good.
func (h *Handler) AdminDestroyRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	if err := h.svc.Store().DestroyRoom(r.Context(), code); err != nil {
		var missing *store.MissingRoomError
		if errors.As(err, &missing) {
			h.Err(w, &rp.Error{Code: rp.CodeRPNotFound})
			return
		}
		h.Err(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
