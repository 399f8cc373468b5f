package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rpnow/rpnow2/internal/models"
)

// MemoryStore is an in-process RoomStore. It backs tests and is the
// fallback when no database is configured in development.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*memRoom
}

type memRoom struct {
	mu       sync.Mutex
	room     models.Room
	messages []models.Message
	charas   []models.Chara
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*memRoom)}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = &memRoom{room: *room}
	return nil
}

func (s *MemoryStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, nil
	}
	room := r.room
	return &room, nil
}

func (s *MemoryStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) DestroyRoom(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return &MissingRoomError{Code: code}
	}
	delete(s.rooms, code)
	return nil
}

func (s *MemoryStore) CountRooms(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rooms)), nil
}

// get returns the room bucket without locking it.
func (s *MemoryStore) get(code string) (*memRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, &MissingRoomError{Code: code}
	}
	return r, nil
}

func (s *MemoryStore) AddMessage(ctx context.Context, code string, msg *models.Message) (int64, error) {
	r, err := s.get(code)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = int64(len(r.messages)) + 1
	r.messages = append(r.messages, *msg)
	return msg.ID, nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, code string, id int64) (*models.Message, error) {
	r, err := s.get(code)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || id > int64(len(r.messages)) {
		return nil, nil
	}
	msg := r.messages[id-1]
	return &msg, nil
}

func (s *MemoryStore) EditMessage(ctx context.Context, code string, msg *models.Message) error {
	r, err := s.get(code)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID < 1 || msg.ID > int64(len(r.messages)) {
		return fmt.Errorf("store: no message %d in room %s", msg.ID, code)
	}
	r.messages[msg.ID-1] = *msg
	return nil
}

func (s *MemoryStore) Messages(ctx context.Context, code string, offset, limit int) ([]models.Message, int64, error) {
	r, err := s.get(code)
	if err != nil {
		return nil, 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := int64(len(r.messages))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.messages) {
		return []models.Message{}, total, nil
	}
	end := len(r.messages)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]models.Message, end-offset)
	copy(out, r.messages[offset:end])
	return out, total, nil
}

func (s *MemoryStore) AddChara(ctx context.Context, code string, chara *models.Chara) (int64, error) {
	r, err := s.get(code)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	chara.ID = int64(len(r.charas)) + 1
	r.charas = append(r.charas, *chara)
	return chara.ID, nil
}

func (s *MemoryStore) Charas(ctx context.Context, code string) ([]models.Chara, error) {
	r, err := s.get(code)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Chara, len(r.charas))
	copy(out, r.charas)
	return out, nil
}

func (s *MemoryStore) CharaExists(ctx context.Context, code string, charaID int64) (bool, error) {
	r, err := s.get(code)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return charaID >= 1 && charaID <= int64(len(r.charas)), nil
}
