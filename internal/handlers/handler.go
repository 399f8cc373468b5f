package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/rpnow/rpnow2/internal/api/middleware"
	"github.com/rpnow/rpnow2/internal/rp"
	"github.com/rpnow/rpnow2/internal/schema"
	"github.com/rpnow/rpnow2/internal/ws"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	svc   *rp.Service
	hub   *ws.Hub
	redis *redis.Client // optional, health check only
}

// NewHandler creates a new Handler.
func NewHandler(svc *rp.Service, hub *ws.Hub, redisClient *redis.Client) *Handler {
	return &Handler{svc: svc, hub: hub, redis: redisClient}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Err sends a classified error in the wire shape
// {"error":{"code":...,"details":...}}.
func (h *Handler) Err(w http.ResponseWriter, err error) {
	var e *rp.Error
	if !errors.As(err, &e) {
		e = &rp.Error{Code: rp.CodeInternal}
	}
	h.JSON(w, statusFor(e.Code), map[string]*rp.Error{"error": e})
}

func statusFor(code string) int {
	switch code {
	case rp.CodeRPNotFound, rp.CodeBadMessageID, rp.CodeCharaNotFound:
		return http.StatusNotFound
	case rp.CodeBadSecret:
		return http.StatusUnauthorized
	case rp.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// decode reads the request body into an untyped record for schema
// validation. A malformed body surfaces as the given code.
func (h *Handler) decode(r *http.Request, code string) (schema.Record, error) {
	var rec schema.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return nil, &rp.Error{Code: code, Details: "invalid JSON body"}
	}
	return rec, nil
}

// ipid derives the opaque per-submitter identifier from the client IP.
// It is kept for moderation context only, never authorization.
func ipid(r *http.Request) string {
	sum := sha256.Sum256([]byte(middleware.RealIP(r)))
	return hex.EncodeToString(sum[:])[:16]
}

// connID identifies the submitting connection so live-delivery
// subscribers can recognize their own events. Optional.
func connID(r *http.Request) string {
	return r.Header.Get("X-RPNow-Connection")
}
