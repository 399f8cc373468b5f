package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rpnow/rpnow2/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/rpnow.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/rpnow.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// A single connection serializes the read-increment-insert id
	// allocation without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		code TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT DEFAULT '',
		created_at REAL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS messages (
		room_code TEXT NOT NULL REFERENCES rooms(code) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		type TEXT NOT NULL,
		content TEXT DEFAULT '',
		url TEXT DEFAULT '',
		chara_id INTEGER DEFAULT 0,
		challenge TEXT DEFAULT '',
		timestamp REAL DEFAULT 0,
		edited REAL DEFAULT 0,
		ipid TEXT DEFAULT '',
		PRIMARY KEY (room_code, id)
	);

	CREATE TABLE IF NOT EXISTS charas (
		room_code TEXT NOT NULL REFERENCES rooms(code) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		PRIMARY KEY (room_code, id)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateRoom inserts a room record. The code is assigned by the caller.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *models.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (code, title, description, created_at)
		VALUES (?, ?, ?, ?)
	`, room.Code, room.Title, room.Desc, room.CreatedAt)
	return err
}

// GetRoomByCode retrieves a room by its code, or (nil, nil) when absent.
func (s *SQLiteStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room := &models.Room{}
	err := s.db.QueryRowContext(ctx, `
		SELECT code, title, description, created_at
		FROM rooms WHERE code = ?
	`, code).Scan(&room.Code, &room.Title, &room.Desc, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// ListRooms returns all rooms ordered by creation time.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, title, description, created_at
		FROM rooms ORDER BY created_at, code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.Code, &room.Title, &room.Desc, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DestroyRoom deletes a room and, via cascade, its messages and charas.
func (s *SQLiteStore) DestroyRoom(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &MissingRoomError{Code: code}
	}
	return nil
}

// CountRooms returns the total number of rooms.
func (s *SQLiteStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// AddMessage appends a message, assigning the next sequential id for
// the room. The read-increment-insert runs inside one transaction on
// the store's single connection, so concurrent appends serialize.
func (s *SQLiteStore) AddMessage(ctx context.Context, code string, msg *models.Message) (int64, error) {
	id, err := s.nextID(ctx, code, "messages", func(tx *sql.Tx, id int64) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (room_code, id, type, content, url, chara_id, challenge, timestamp, edited, ipid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, code, id, msg.Type, msg.Content, msg.URL, msg.CharaID, msg.Challenge, msg.Timestamp, msg.Edited, msg.IPID)
		return err
	})
	if err != nil {
		return 0, err
	}
	msg.ID = id
	return id, nil
}

// nextID allocates MAX(id)+1 for the room in table and runs insert with
// it, all in one transaction.
func (s *SQLiteStore) nextID(ctx context.Context, code, table string, insert func(tx *sql.Tx, id int64) error) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE code = ?)`, code).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, &MissingRoomError{Code: code}
	}

	var id int64
	query := `SELECT COALESCE(MAX(id), 0) + 1 FROM ` + table + ` WHERE room_code = ?`
	if err := tx.QueryRowContext(ctx, query, code).Scan(&id); err != nil {
		return 0, err
	}

	if err := insert(tx, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetMessage retrieves a message by id, or (nil, nil) when absent.
func (s *SQLiteStore) GetMessage(ctx context.Context, code string, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, content, url, chara_id, challenge, timestamp, edited, ipid
		FROM messages WHERE room_code = ? AND id = ?
	`, code, id).Scan(&msg.ID, &msg.Type, &msg.Content, &msg.URL, &msg.CharaID, &msg.Challenge, &msg.Timestamp, &msg.Edited, &msg.IPID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// EditMessage overwrites a stored message's mutable fields.
func (s *SQLiteStore) EditMessage(ctx context.Context, code string, msg *models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, edited = ?
		WHERE room_code = ? AND id = ?
	`, msg.Content, msg.Edited, code, msg.ID)
	return err
}

// Messages returns the ascending id range [offset, offset+limit) and
// the total message count for the room.
func (s *SQLiteStore) Messages(ctx context.Context, code string, offset, limit int) ([]models.Message, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE room_code = ?
	`, code).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = -1 // no limit in sqlite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, content, url, chara_id, challenge, timestamp, edited, ipid
		FROM messages WHERE room_code = ?
		ORDER BY id LIMIT ? OFFSET ?
	`, code, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Type, &msg.Content, &msg.URL, &msg.CharaID, &msg.Challenge, &msg.Timestamp, &msg.Edited, &msg.IPID); err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, total, rows.Err()
}

// AddChara appends a chara, assigning the next sequential id for the room.
func (s *SQLiteStore) AddChara(ctx context.Context, code string, chara *models.Chara) (int64, error) {
	id, err := s.nextID(ctx, code, "charas", func(tx *sql.Tx, id int64) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO charas (room_code, id, name, color)
			VALUES (?, ?, ?, ?)
		`, code, id, chara.Name, chara.Color)
		return err
	})
	if err != nil {
		return 0, err
	}
	chara.ID = id
	return id, nil
}

// Charas returns the room's chara roster in id order.
func (s *SQLiteStore) Charas(ctx context.Context, code string) ([]models.Chara, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color FROM charas
		WHERE room_code = ? ORDER BY id
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	charas := []models.Chara{}
	for rows.Next() {
		var chara models.Chara
		if err := rows.Scan(&chara.ID, &chara.Name, &chara.Color); err != nil {
			return nil, err
		}
		charas = append(charas, chara)
	}
	return charas, rows.Err()
}

// CharaExists reports whether the room has a chara with the given id.
func (s *SQLiteStore) CharaExists(ctx context.Context, code string, charaID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM charas WHERE room_code = ? AND id = ?)
	`, code, charaID).Scan(&exists)
	return exists, err
}
