package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisNotifier publishes events on a per-room pub/sub channel so other
// instances (or an external delivery tier) can pick them up.
type RedisNotifier struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, logger zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// Channel returns the pub/sub channel name for a room.
func Channel(roomCode string) string {
	return "rp:events:" + roomCode
}

// Emit publishes the event as JSON. Publish failures are logged and
// swallowed; delivery carries no guarantee.
func (n *RedisNotifier) Emit(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error().Err(err).Str("kind", ev.Kind).Msg("failed to encode event")
		return
	}
	if err := n.client.Publish(ctx, Channel(ev.RoomCode), payload).Err(); err != nil {
		n.logger.Warn().Err(err).
			Str("kind", ev.Kind).
			Str("rp_code", ev.RoomCode).
			Msg("failed to publish event")
	}
}
