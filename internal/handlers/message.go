package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rpnow/rpnow2/internal/rp"
)

// PostMessage handles POST /api/rp/{rpCode}/message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	input, err := h.decode(r, rp.CodeBadMessage)
	if err != nil {
		h.Err(w, err)
		return
	}

	msg, err := h.svc.AddMessage(r.Context(), code, connID(r), ipid(r), input)
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// PostImage handles POST /api/rp/{rpCode}/image. The body carries a
// bare {"url": ...}; the URL is verified to serve an image before the
// message is accepted.
func (h *Handler) PostImage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	input, err := h.decode(r, rp.CodeBadURL)
	if err != nil {
		h.Err(w, err)
		return
	}

	msg, err := h.svc.AddImage(r.Context(), code, connID(r), ipid(r), input["url"])
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// EditMessage handles PUT /api/rp/{rpCode}/message/{id}. The body
// carries the replacement content and the author's secret.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "rpCode")

	input, err := h.decode(r, rp.CodeBadEdit)
	if err != nil {
		h.Err(w, err)
		return
	}

	// The id in the path wins over any id in the body.
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Err(w, &rp.Error{Code: rp.CodeBadEdit, Details: "id must be an integer"})
		return
	}
	input["id"] = id

	msg, err := h.svc.EditMessage(r.Context(), code, connID(r), input)
	if err != nil {
		h.Err(w, err)
		return
	}

	h.JSON(w, http.StatusOK, msg)
}
