// Package rp implements the message and chara pipelines: validation,
// edit authorization via the challenge/secret scheme, metadata
// stamping, persistence, and change notification.
package rp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rpnow/rpnow2/internal/challenge"
	"github.com/rpnow/rpnow2/internal/fetch"
	"github.com/rpnow/rpnow2/internal/metrics"
	"github.com/rpnow/rpnow2/internal/models"
	"github.com/rpnow/rpnow2/internal/notify"
	"github.com/rpnow/rpnow2/internal/rpcode"
	"github.com/rpnow/rpnow2/internal/schema"
	"github.com/rpnow/rpnow2/internal/store"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-f]{6}$`)

// Config holds the room tunables.
type Config struct {
	CodeLength      int
	CodeAlphabet    string
	MaxTitleLen     int
	MaxDescLen      int
	MaxCharaNameLen int
	MaxContentLen   int
	PageSize        int
}

func (c *Config) withDefaults() {
	if c.CodeLength <= 0 {
		c.CodeLength = 8
	}
	if c.CodeAlphabet == "" {
		c.CodeAlphabet = "abcdefhjknpstxyz23456789"
	}
	if c.MaxTitleLen <= 0 {
		c.MaxTitleLen = 30
	}
	if c.MaxDescLen <= 0 {
		c.MaxDescLen = 255
	}
	if c.MaxCharaNameLen <= 0 {
		c.MaxCharaNameLen = 30
	}
	if c.MaxContentLen <= 0 {
		c.MaxContentLen = 10000
	}
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
}

// Service orchestrates room, message and chara operations against the
// store. It is safe for concurrent use; per-room write serialization is
// the store's responsibility.
type Service struct {
	store  store.RoomStore
	notify notify.Notifier
	fetch  fetch.Fetcher
	logger zerolog.Logger
	cfg    Config

	now  func() time.Time
	rand io.Reader

	codes       *rpcode.Generator
	roomOptions *schema.Schema
	addChara    *schema.Schema
	addMessage  *schema.Schema
	editMessage *schema.Schema
}

// NewService wires the pipelines. A nil notifier or fetcher is replaced
// with a no-op / default implementation.
func NewService(st store.RoomStore, n notify.Notifier, f fetch.Fetcher, logger zerolog.Logger, cfg Config) *Service {
	cfg.withDefaults()
	if n == nil {
		n = notify.Nop{}
	}
	if f == nil {
		f = fetch.NewHTTPFetcher(0)
	}

	s := &Service{
		store:  st,
		notify: n,
		fetch:  f,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		rand:   rand.Reader,
	}
	s.codes = rpcode.New(cfg.CodeLength, cfg.CodeAlphabet, s.rand)
	s.buildSchemas()
	return s
}

func (s *Service) buildSchemas() {
	s.roomOptions = schema.New(
		schema.Field{Name: "title", Is: schema.String{Max: s.cfg.MaxTitleLen}},
		schema.Field{Name: "desc", Optional: true, Is: schema.String{Max: s.cfg.MaxDescLen}},
	)

	s.addChara = schema.New(
		schema.Field{Name: "name", Is: schema.String{Max: s.cfg.MaxCharaNameLen}},
		schema.Field{Name: "color", Is: schema.Pattern{Regexp: colorPattern}},
	)

	// "type" validates first so the later rules can condition on it.
	s.addMessage = schema.New(
		schema.Field{Name: "type", Is: schema.Enum{
			models.TypeNarrator, models.TypeChara, models.TypeOOC, models.TypeImage,
		}},
		schema.Field{Name: "content", When: func(r schema.Record) schema.Constraint {
			if r["type"] == models.TypeImage {
				return nil
			}
			return schema.String{Max: s.cfg.MaxContentLen}
		}},
		schema.Field{Name: "url", When: func(r schema.Record) schema.Constraint {
			if r["type"] == models.TypeImage {
				return schema.String{}
			}
			return nil
		}},
		schema.Field{Name: "charaId", When: func(r schema.Record) schema.Constraint {
			if r["type"] == models.TypeChara {
				return schema.Int{Min: 0}
			}
			return nil
		}},
		schema.Field{Name: "challenge", When: func(r schema.Record) schema.Constraint {
			if r["type"] == models.TypeImage {
				return nil
			}
			return schema.String{Max: 128}
		}},
	)

	s.editMessage = schema.New(
		schema.Field{Name: "id", Is: schema.Int{Min: 0}},
		schema.Field{Name: "content", Is: schema.String{Max: s.cfg.MaxContentLen}},
		schema.Field{Name: "secret", Is: schema.String{Max: 64}},
	)
}

// seconds returns the current time in fractional seconds since epoch.
func (s *Service) seconds() float64 {
	return float64(s.now().UnixMilli()) / 1000
}

// mapStoreErr classifies a store failure.
func mapStoreErr(err error) *Error {
	var missing *store.MissingRoomError
	if errors.As(err, &missing) {
		return newError(CodeRPNotFound, "")
	}
	return internalError(err)
}

// GenerateChallenge returns a fresh secret/hash pair. The caller keeps
// the secret and submits only the hash with new messages.
func (s *Service) GenerateChallenge() (challenge.Pair, error) {
	pair, err := challenge.Generate(s.rand)
	if err != nil {
		return challenge.Pair{}, internalError(err)
	}
	metrics.ChallengesIssued.Inc()
	return pair, nil
}

// CreateRoom validates the room options, assigns a fresh code and
// persists the room.
func (s *Service) CreateRoom(ctx context.Context, input schema.Record) (*models.Room, error) {
	rec, err := s.roomOptions.Apply(input)
	if err != nil {
		return nil, newError(CodeBadRP, err.Error())
	}

	code, err := s.codes.Generate(ctx, func(ctx context.Context, candidate string) (bool, error) {
		room, err := s.store.GetRoomByCode(ctx, candidate)
		return room != nil, err
	})
	if err != nil {
		return nil, internalError(err)
	}

	room := &models.Room{
		Code:      code,
		Title:     rec["title"].(string),
		CreatedAt: s.seconds(),
	}
	if desc, ok := rec["desc"].(string); ok {
		room.Desc = desc
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, internalError(err)
	}

	metrics.RoomsCreated.Inc()
	s.logger.Info().Str("rp_code", room.Code).Msg("room created")
	return room, nil
}

// RoomView is a room together with a window of its message log and the
// full chara roster.
type RoomView struct {
	Title     string           `json:"title"`
	Desc      string           `json:"desc,omitempty"`
	Msgs      []models.Message `json:"msgs"`
	Charas    []models.Chara   `json:"charas"`
	MsgCount  int64            `json:"msgCount"`
	PageCount int64            `json:"pageCount"`
}

// GetRoom returns the whole room: every message plus the roster.
func (s *Service) GetRoom(ctx context.Context, code string) (*RoomView, error) {
	return s.view(ctx, code, 0, 0)
}

// GetPage returns one page of the room's log (1-based) plus the roster.
func (s *Service) GetPage(ctx context.Context, code string, page int) (*RoomView, error) {
	if page < 1 {
		page = 1
	}
	return s.view(ctx, code, (page-1)*s.cfg.PageSize, s.cfg.PageSize)
}

func (s *Service) view(ctx context.Context, code string, offset, limit int) (*RoomView, error) {
	if code == "" {
		return nil, newError(CodeBadRPCode, "")
	}
	room, err := s.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, internalError(err)
	}
	if room == nil {
		return nil, newError(CodeRPNotFound, "")
	}

	msgs, total, err := s.store.Messages(ctx, code, offset, limit)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	charas, err := s.store.Charas(ctx, code)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	view := &RoomView{
		Title:    room.Title,
		Desc:     room.Desc,
		Msgs:     msgs,
		Charas:   charas,
		MsgCount: total,
	}
	view.PageCount = (total + int64(s.cfg.PageSize) - 1) / int64(s.cfg.PageSize)
	if view.PageCount < 1 {
		view.PageCount = 1
	}
	return view, nil
}

// AddMessage validates a raw message, checks its chara reference and
// image URL as applicable, stamps metadata, appends it to the room and
// emits a change event. The returned message carries its assigned id.
func (s *Service) AddMessage(ctx context.Context, code, connID, ipid string, input schema.Record) (*models.Message, error) {
	rec, err := s.addMessage.Apply(input)
	if err != nil {
		return nil, newError(CodeBadMessage, err.Error())
	}

	msg := &models.Message{Type: rec["type"].(string)}
	if v, ok := rec["content"].(string); ok {
		msg.Content = v
	}
	if v, ok := rec["url"].(string); ok {
		msg.URL = v
	}
	if v, ok := rec["charaId"].(int64); ok {
		msg.CharaID = v
	}
	if v, ok := rec["challenge"].(string); ok {
		msg.Challenge = v
	}

	return s.storeMessage(ctx, code, connID, ipid, msg)
}

// AddImage accepts a bare URL and appends it as an image message.
func (s *Service) AddImage(ctx context.Context, code, connID, ipid string, url any) (*models.Message, error) {
	u, ok := url.(string)
	if !ok || u == "" {
		return nil, newError(CodeBadURL, "")
	}
	msg := &models.Message{Type: models.TypeImage, URL: u}
	return s.storeMessage(ctx, code, connID, ipid, msg)
}

func (s *Service) storeMessage(ctx context.Context, code, connID, ipid string, msg *models.Message) (*models.Message, error) {
	// Charas must be in the room's roster. The store guarantees the
	// check sees every chara committed before this call began.
	if msg.Type == models.TypeChara {
		exists, err := s.store.CharaExists(ctx, code, msg.CharaID)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		if !exists {
			return nil, newError(CodeCharaNotFound, fmt.Sprintf("no character with id %d", msg.CharaID))
		}
	}

	if msg.Type == models.TypeImage {
		contentType, err := s.fetch.Head(ctx, msg.URL)
		if err != nil {
			return nil, newError(CodeURLFailed, err.Error())
		}
		if contentType == "" {
			return nil, newError(CodeUnknownContent, "")
		}
		if !strings.HasPrefix(contentType, "image/") {
			return nil, newError(CodeBadContent, contentType)
		}
	}

	msg.Timestamp = s.seconds()
	msg.IPID = ipid

	if _, err := s.store.AddMessage(ctx, code, msg); err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.MessagesPosted.WithLabelValues(msg.Type).Inc()
	s.notify.Emit(ctx, notify.NewEvent(notify.KindMessageAdded, code, connID, msg))
	return msg, nil
}

// EditMessage replaces a message's content wholesale after verifying
// the submitted secret against the stored challenge hash. The hash
// itself never changes.
func (s *Service) EditMessage(ctx context.Context, code, connID string, input schema.Record) (*models.Message, error) {
	rec, err := s.editMessage.Apply(input)
	if err != nil {
		return nil, newError(CodeBadEdit, err.Error())
	}
	id := rec["id"].(int64)
	content := rec["content"].(string)
	secret := rec["secret"].(string)

	msg, err := s.store.GetMessage(ctx, code, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if msg == nil {
		return nil, newError(CodeBadMessageID, "")
	}

	if !challenge.Verify(secret, msg.Challenge) {
		return nil, newError(CodeBadSecret, "")
	}

	msg.Content = content
	msg.Edited = s.seconds()

	if err := s.store.EditMessage(ctx, code, msg); err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.MessagesEdited.Inc()
	s.notify.Emit(ctx, notify.NewEvent(notify.KindMessageEdited, code, connID, msg))
	return msg, nil
}

// AddChara validates and persists a new chara, assigning the next
// sequential id for the room.
func (s *Service) AddChara(ctx context.Context, code, connID string, input schema.Record) (*models.Chara, error) {
	rec, err := s.addChara.Apply(input)
	if err != nil {
		return nil, newError(CodeBadChara, err.Error())
	}

	chara := &models.Chara{
		Name:  rec["name"].(string),
		Color: rec["color"].(string),
	}
	if _, err := s.store.AddChara(ctx, code, chara); err != nil {
		return nil, mapStoreErr(err)
	}

	metrics.CharasCreated.Inc()
	s.notify.Emit(ctx, notify.NewEvent(notify.KindCharaAdded, code, connID, chara))
	return chara, nil
}

// PageSize exposes the configured page size to the transport layer.
func (s *Service) PageSize() int {
	return s.cfg.PageSize
}

// Store exposes the underlying store for health checks and admin ops.
func (s *Service) Store() store.RoomStore {
	return s.store
}
