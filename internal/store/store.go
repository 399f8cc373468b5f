package store

import (
	"context"

	"github.com/rpnow/rpnow2/internal/models"
)

// RoomStore defines the interface for persistent storage of rooms,
// messages and charas. Both SQLiteStore and PostgresStore implement it;
// MemoryStore backs tests and zero-config development.
//
// Implementations must serialize writes per room: two concurrent
// AddMessage calls for the same room never receive the same id, and
// CharaExists sees every chara committed before the call began.
// Message and chara ids are assigned by the store, sequentially per
// room starting at 1, in commit order.
type RoomStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Room operations. The caller assigns the code (via rpcode) before
	// CreateRoom. GetRoomByCode returns (nil, nil) when absent.
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	DestroyRoom(ctx context.Context, code string) error
	CountRooms(ctx context.Context) (int64, error)

	// Message operations. AddMessage assigns msg.ID and returns it.
	// GetMessage returns (nil, nil) when absent. Messages returns the
	// ascending id range [offset, offset+limit) plus the total count;
	// limit <= 0 means no limit.
	AddMessage(ctx context.Context, code string, msg *models.Message) (int64, error)
	GetMessage(ctx context.Context, code string, id int64) (*models.Message, error)
	EditMessage(ctx context.Context, code string, msg *models.Message) error
	Messages(ctx context.Context, code string, offset, limit int) ([]models.Message, int64, error)

	// Chara operations. AddChara assigns chara.ID and returns it.
	AddChara(ctx context.Context, code string, chara *models.Chara) (int64, error)
	Charas(ctx context.Context, code string) ([]models.Chara, error)
	CharaExists(ctx context.Context, code string, charaID int64) (bool, error)
}

// MissingRoomError is returned by write operations against a room code
// that does not exist.
type MissingRoomError struct {
	Code string
}

func (e *MissingRoomError) Error() string {
	return "store: no room with code " + e.Code
}
