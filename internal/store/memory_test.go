package store

import (
	"context"
	"sync"
	"testing"

	"github.com/rpnow/rpnow2/internal/models"
)

func newTestRoom(t *testing.T, s *MemoryStore) string {
	t.Helper()
	room := &models.Room{Code: "abc12", Title: "Test"}
	if err := s.CreateRoom(context.Background(), room); err != nil {
		t.Fatal(err)
	}
	return room.Code
}

func TestRoomLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	code := newTestRoom(t, s)

	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if room == nil || room.Title != "Test" {
		t.Fatalf("expected stored room back, got %+v", room)
	}

	absent, err := s.GetRoomByCode(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if absent != nil {
		t.Fatal("expected nil for unknown code")
	}

	if err := s.DestroyRoom(ctx, code); err != nil {
		t.Fatal(err)
	}
	if err := s.DestroyRoom(ctx, code); err == nil {
		t.Fatal("expected error destroying a destroyed room")
	}
}

func TestSequentialMessageIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	code := newTestRoom(t, s)

	for want := int64(1); want <= 5; want++ {
		id, err := s.AddMessage(ctx, code, &models.Message{Type: models.TypeNarrator, Content: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}
}

func TestConcurrentMessageIDsAreDense(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	code := newTestRoom(t, s)

	const n = 100
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.AddMessage(ctx, code, &models.Message{Type: models.TypeOOC, Content: "hi"})
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	for want := int64(1); want <= n; want++ {
		if !seen[want] {
			t.Fatalf("missing id %d", want)
		}
	}
}

func TestEditMessagePersists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	code := newTestRoom(t, s)

	msg := &models.Message{Type: models.TypeNarrator, Content: "before"}
	if _, err := s.AddMessage(ctx, code, msg); err != nil {
		t.Fatal(err)
	}

	msg.Content = "after"
	msg.Edited = 123.5
	if err := s.EditMessage(ctx, code, msg); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMessage(ctx, code, msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "after" || got.Edited != 123.5 {
		t.Fatalf("edit not persisted: %+v", got)
	}
}

func TestMessagesPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	code := newTestRoom(t, s)

	for i := 0; i < 7; i++ {
		if _, err := s.AddMessage(ctx, code, &models.Message{Type: models.TypeOOC, Content: "m"}); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := s.Messages(ctx, code, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}
	if len(page) != 2 || page[0].ID != 6 || page[1].ID != 7 {
		t.Fatalf("unexpected page: %+v", page)
	}

	all, _, err := s.Messages(ctx, code, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 7 {
		t.Fatalf("expected all 7 messages, got %d", len(all))
	}
}

func TestCharaExists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	code := newTestRoom(t, s)

	id, err := s.AddChara(ctx, code, &models.Chara{Name: "Al", Color: "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatalf("expected first chara id 1, got %d", id)
	}

	exists, err := s.CharaExists(ctx, code, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("chara 1 should exist")
	}

	exists, err = s.CharaExists(ctx, code, 999)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("chara 999 should not exist")
	}
}

func TestWritesToUnknownRoomFail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.AddMessage(ctx, "nope", &models.Message{Type: models.TypeOOC}); err == nil {
		t.Fatal("expected error writing to unknown room")
	}
	if _, err := s.AddChara(ctx, "nope", &models.Chara{Name: "Al", Color: "#ff0000"}); err == nil {
		t.Fatal("expected error writing to unknown room")
	}
}
