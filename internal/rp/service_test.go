package rp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rpnow/rpnow2/internal/challenge"
	"github.com/rpnow/rpnow2/internal/notify"
	"github.com/rpnow/rpnow2/internal/schema"
	"github.com/rpnow/rpnow2/internal/store"
)

type fakeFetcher struct {
	contentType string
	err         error
}

func (f fakeFetcher) Head(ctx context.Context, url string) (string, error) {
	return f.contentType, f.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Emit(ctx context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Kind
	}
	return out
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *recordingNotifier) {
	t.Helper()
	st := store.NewMemoryStore()
	n := &recordingNotifier{}
	svc := NewService(st, n, fakeFetcher{contentType: "image/png"}, zerolog.Nop(), Config{CodeLength: 5})
	svc.now = func() time.Time { return time.Unix(1500000000, 0) }
	return svc, st, n
}

func createTestRoom(t *testing.T, svc *Service) string {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), schema.Record{"title": "Test"})
	if err != nil {
		t.Fatal(err)
	}
	return room.Code
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *rp.Error, got %T: %v", err, err)
	}
	return e.Code
}

func TestCreateRoom(t *testing.T) {
	svc, _, _ := newTestService(t)

	room, err := svc.CreateRoom(context.Background(), schema.Record{"title": "Test"})
	if err != nil {
		t.Fatal(err)
	}
	if len(room.Code) != 5 {
		t.Fatalf("expected 5-char code, got %q", room.Code)
	}
	for _, c := range room.Code {
		if !strings.ContainsRune("abcdefhjknpstxyz23456789", c) {
			t.Fatalf("code %q contains %q outside the alphabet", room.Code, c)
		}
	}
	if room.Title != "Test" {
		t.Fatalf("expected title %q, got %q", "Test", room.Title)
	}

	view, err := svc.GetRoom(context.Background(), room.Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Msgs) != 0 || len(view.Charas) != 0 {
		t.Fatal("fresh room should be empty")
	}
}

func TestCreateRoomBadOptions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []schema.Record{
		{},                                   // no title
		{"title": 7},                         // wrong type
		{"title": strings.Repeat("x", 100)},  // too long
		{"title": "ok", "desc": 7},           // bad desc
	}
	for _, input := range cases {
		_, err := svc.CreateRoom(ctx, input)
		if code := errCode(t, err); code != CodeBadRP {
			t.Fatalf("expected BAD_RP for %v, got %s", input, code)
		}
	}
}

func TestGetRoomNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetRoom(context.Background(), "zzzzz")
	if code := errCode(t, err); code != CodeRPNotFound {
		t.Fatalf("expected RP_NOT_FOUND, got %s", code)
	}
}

func TestAddChara(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	chara, err := svc.AddChara(ctx, code, "", schema.Record{"name": "Al", "color": "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if chara.ID != 1 {
		t.Fatalf("expected first chara id 1, got %d", chara.ID)
	}

	_, err = svc.AddChara(ctx, code, "", schema.Record{"name": "Al", "color": "#FF0000"})
	if c := errCode(t, err); c != CodeBadChara {
		t.Fatalf("uppercase hex should fail with BAD_CHARA, got %s", c)
	}

	if kinds := n.kinds(); len(kinds) != 1 || kinds[0] != notify.KindCharaAdded {
		t.Fatalf("expected one %q event, got %v", notify.KindCharaAdded, kinds)
	}
}

func TestAddMessageCharaFlow(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	if _, err := svc.AddChara(ctx, code, "", schema.Record{"name": "Al", "color": "#ff0000"}); err != nil {
		t.Fatal(err)
	}

	pair, err := svc.GenerateChallenge()
	if err != nil {
		t.Fatal(err)
	}

	msg, err := svc.AddMessage(ctx, code, "conn1", "ip1", schema.Record{
		"type":      "chara",
		"charaId":   float64(1),
		"content":   "Hi",
		"challenge": pair.Hash,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != 1 {
		t.Fatalf("expected message id 1, got %d", msg.ID)
	}
	if msg.CharaID != 1 {
		t.Fatalf("expected charaId 1, got %d", msg.CharaID)
	}
	if msg.Timestamp != 1500000000 {
		t.Fatalf("expected stamped timestamp, got %v", msg.Timestamp)
	}
	if msg.IPID != "ip1" {
		t.Fatalf("expected stamped ipid, got %q", msg.IPID)
	}
	if msg.Edited != 0 {
		t.Fatal("fresh message must not be marked edited")
	}

	kinds := n.kinds()
	if kinds[len(kinds)-1] != notify.KindMessageAdded {
		t.Fatalf("expected %q event, got %v", notify.KindMessageAdded, kinds)
	}
}

func TestAddMessageCharaNotFound(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	_, err := svc.AddMessage(ctx, code, "", "ip1", schema.Record{
		"type":      "chara",
		"charaId":   float64(999),
		"content":   "Hi",
		"challenge": challenge.Hash("s"),
	})
	if c := errCode(t, err); c != CodeCharaNotFound {
		t.Fatalf("expected CHARA_NOT_FOUND, got %s", c)
	}

	// No mutation, no event, and the next id is unaffected.
	if len(n.kinds()) != 0 {
		t.Fatal("failed message must not emit an event")
	}
	view, err := svc.GetRoom(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Msgs) != 0 {
		t.Fatal("failed message must not be stored")
	}

	msg, err := svc.AddMessage(ctx, code, "", "ip1", schema.Record{
		"type": "narrator", "content": "next", "challenge": challenge.Hash("s"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != 1 {
		t.Fatalf("next id should be 1, got %d", msg.ID)
	}
}

func TestAddMessageValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	cases := []schema.Record{
		{"content": "Hi", "challenge": "h"},                        // no type
		{"type": "shout", "content": "Hi", "challenge": "h"},       // bad type
		{"type": "narrator", "challenge": "h"},                     // no content
		{"type": "narrator", "content": "Hi"},                      // no challenge
		{"type": "narrator", "content": "Hi", "challenge": "h", "charaId": float64(1)}, // charaId on narrator
	}
	for _, input := range cases {
		_, err := svc.AddMessage(ctx, code, "", "ip", input)
		if c := errCode(t, err); c != CodeBadMessage {
			t.Fatalf("expected BAD_MSG for %v, got %s", input, c)
		}
	}
}

func TestEditMessage(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	pair, err := svc.GenerateChallenge()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := svc.AddMessage(ctx, code, "", "ip1", schema.Record{
		"type": "narrator", "content": "Hi", "challenge": pair.Hash,
	})
	if err != nil {
		t.Fatal(err)
	}

	edited, err := svc.EditMessage(ctx, code, "", schema.Record{
		"id": float64(msg.ID), "content": "Hi!", "secret": pair.Secret,
	})
	if err != nil {
		t.Fatal(err)
	}
	if edited.Content != "Hi!" {
		t.Fatalf("expected replaced content, got %q", edited.Content)
	}
	if edited.Edited == 0 {
		t.Fatal("edited timestamp must be set")
	}
	if edited.Challenge != pair.Hash {
		t.Fatal("challenge hash must never change on edit")
	}

	kinds := n.kinds()
	if kinds[len(kinds)-1] != notify.KindMessageEdited {
		t.Fatalf("expected %q event, got %v", notify.KindMessageEdited, kinds)
	}
}

func TestEditMessageWrongSecret(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	pair, err := svc.GenerateChallenge()
	if err != nil {
		t.Fatal(err)
	}
	msg, err := svc.AddMessage(ctx, code, "", "ip1", schema.Record{
		"type": "narrator", "content": "Hi", "challenge": pair.Hash,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.EditMessage(ctx, code, "", schema.Record{
		"id": float64(msg.ID), "content": "hacked", "secret": "ffffffff",
	})
	if c := errCode(t, err); c != CodeBadSecret {
		t.Fatalf("expected BAD_SECRET, got %s", c)
	}

	// Message unchanged
	view, err := svc.GetRoom(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if view.Msgs[0].Content != "Hi" || view.Msgs[0].Edited != 0 {
		t.Fatalf("failed edit must leave the message alone: %+v", view.Msgs[0])
	}
}

func TestEditMessageNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	_, err := svc.EditMessage(ctx, code, "", schema.Record{
		"id": float64(42), "content": "x", "secret": "s",
	})
	if c := errCode(t, err); c != CodeBadMessageID {
		t.Fatalf("expected BAD_MSG_ID, got %s", c)
	}
}

func TestImageMessages(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		fetcher  fakeFetcher
		wantCode string
	}{
		{"ok", fakeFetcher{contentType: "image/png"}, ""},
		{"fetch fails", fakeFetcher{err: errors.New("connection refused")}, CodeURLFailed},
		{"no content type", fakeFetcher{contentType: ""}, CodeUnknownContent},
		{"not an image", fakeFetcher{contentType: "text/html"}, CodeBadContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			svc := NewService(st, nil, tc.fetcher, zerolog.Nop(), Config{CodeLength: 5})
			code := createTestRoom(t, svc)

			msg, err := svc.AddImage(ctx, code, "", "ip1", "https://example.com/a.png")
			if tc.wantCode == "" {
				if err != nil {
					t.Fatal(err)
				}
				if msg.Type != "image" || msg.URL != "https://example.com/a.png" {
					t.Fatalf("unexpected message: %+v", msg)
				}
				return
			}
			if c := errCode(t, err); c != tc.wantCode {
				t.Fatalf("expected %s, got %s", tc.wantCode, c)
			}
		})
	}
}

func TestAddImageRequiresStringURL(t *testing.T) {
	svc, _, _ := newTestService(t)
	code := createTestRoom(t, svc)

	for _, bad := range []any{nil, 7, ""} {
		_, err := svc.AddImage(context.Background(), code, "", "ip1", bad)
		if c := errCode(t, err); c != CodeBadURL {
			t.Fatalf("expected BAD_URL for %v, got %s", bad, c)
		}
	}
}

func TestConcurrentAddMessage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	code := createTestRoom(t, svc)

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := svc.AddMessage(ctx, code, "", "ip", schema.Record{
				"type": "ooc", "content": "hi", "challenge": challenge.Hash("s"),
			})
			if err != nil {
				t.Error(err)
				return
			}
			ids <- msg.ID
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

// Extra unknown fields are tolerated on input. Flagging the current
// permissive behavior: they are dropped, not rejected.
func TestAddMessageIgnoresUnknownFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	code := createTestRoom(t, svc)

	msg, err := svc.AddMessage(context.Background(), code, "", "ip", schema.Record{
		"type": "narrator", "content": "Hi", "challenge": challenge.Hash("s"),
		"bogus": true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != 1 {
		t.Fatalf("expected id 1, got %d", msg.ID)
	}
}

func TestGetPage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	code := createTestRoom(t, svc)
	for i := 0; i < 25; i++ {
		if _, err := svc.AddMessage(ctx, code, "", "ip", schema.Record{
			"type": "ooc", "content": "m", "challenge": challenge.Hash("s"),
		}); err != nil {
			t.Fatal(err)
		}
	}

	// Default page size is 20
	page1, err := svc.GetPage(ctx, code, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1.Msgs) != 20 || page1.Msgs[0].ID != 1 {
		t.Fatalf("unexpected first page: %d msgs starting at %d", len(page1.Msgs), page1.Msgs[0].ID)
	}
	if page1.MsgCount != 25 || page1.PageCount != 2 {
		t.Fatalf("expected 25 msgs over 2 pages, got %d/%d", page1.MsgCount, page1.PageCount)
	}

	page2, err := svc.GetPage(ctx, code, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Msgs) != 5 || page2.Msgs[0].ID != 21 {
		t.Fatalf("unexpected second page: %+v", page2.Msgs)
	}
}
