package models

// Message types. Narrator, chara and ooc messages carry content; image
// messages carry a URL instead.
const (
	TypeNarrator = "narrator"
	TypeChara    = "chara"
	TypeOOC      = "ooc"
	TypeImage    = "image"
)

// Room is a roleplay session identified by a short code. Messages and
// charas live in the store keyed by the room code.
type Room struct {
	Code      string  `json:"rpCode"`
	Title     string  `json:"title"`
	Desc      string  `json:"desc,omitempty"`
	CreatedAt float64 `json:"createdAt,omitempty"`
}

// Chara is a named, colored persona a room's participants can speak as.
// IDs are assigned by the store, sequentially per room starting at 1.
type Chara struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Message is a single entry in a room's log. IDs are assigned by the
// store in commit order, sequentially per room starting at 1.
//
// Challenge holds the SHA-512 hex digest submitted at creation time; the
// matching secret authorizes later edits. It never changes after creation.
// Edited is zero until the first successful edit.
type Message struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Content   string  `json:"content,omitempty"`
	URL       string  `json:"url,omitempty"`
	CharaID   int64   `json:"charaId,omitempty"`
	Challenge string  `json:"challenge,omitempty"`
	Timestamp float64 `json:"timestamp"`
	Edited    float64 `json:"edited,omitempty"`
	IPID      string  `json:"ipid,omitempty"`
}
