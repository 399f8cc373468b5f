package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpnow/rpnow2/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		code TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DOUBLE PRECISION NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS messages (
		room_code TEXT NOT NULL REFERENCES rooms(code) ON DELETE CASCADE,
		id BIGINT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		chara_id BIGINT NOT NULL DEFAULT 0,
		challenge TEXT NOT NULL DEFAULT '',
		timestamp DOUBLE PRECISION NOT NULL DEFAULT 0,
		edited DOUBLE PRECISION NOT NULL DEFAULT 0,
		ipid TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (room_code, id)
	);

	CREATE TABLE IF NOT EXISTS charas (
		room_code TEXT NOT NULL REFERENCES rooms(code) ON DELETE CASCADE,
		id BIGINT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		PRIMARY KEY (room_code, id)
	);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateRoom inserts a room record. The code is assigned by the caller.
func (s *PostgresStore) CreateRoom(ctx context.Context, room *models.Room) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (code, title, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, room.Code, room.Title, room.Desc, room.CreatedAt)
	return err
}

// GetRoomByCode retrieves a room by its code, or (nil, nil) when absent.
func (s *PostgresStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT code, title, description, created_at
		FROM rooms WHERE code = $1
	`, code).Scan(&room.Code, &room.Title, &room.Desc, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// ListRooms returns all rooms ordered by creation time.
func (s *PostgresStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
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
func (s *PostgresStore) DestroyRoom(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &MissingRoomError{Code: code}
	}
	return nil
}

// CountRooms returns the total number of rooms.
func (s *PostgresStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// AddMessage appends a message, assigning the next sequential id for
// the room. The room row is locked for the duration of the transaction
// so concurrent appends to the same room serialize.
func (s *PostgresStore) AddMessage(ctx context.Context, code string, msg *models.Message) (int64, error) {
	id, err := s.nextID(ctx, code, "messages", func(tx pgx.Tx, id int64) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (room_code, id, type, content, url, chara_id, challenge, timestamp, edited, ipid)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, code, id, msg.Type, msg.Content, msg.URL, msg.CharaID, msg.Challenge, msg.Timestamp, msg.Edited, msg.IPID)
		return err
	})
	if err != nil {
		return 0, err
	}
	msg.ID = id
	return id, nil
}

// nextID locks the room row, allocates MAX(id)+1 in table, and runs
// insert with it, all in one transaction.
func (s *PostgresStore) nextID(ctx context.Context, code, table string, insert func(tx pgx.Tx, id int64) error) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT code FROM rooms WHERE code = $1 FOR UPDATE`, code).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &MissingRoomError{Code: code}
		}
		return 0, err
	}

	var id int64
	query := `SELECT COALESCE(MAX(id), 0) + 1 FROM ` + table + ` WHERE room_code = $1`
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		return 0, err
	}

	if err := insert(tx, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// GetMessage retrieves a message by id, or (nil, nil) when absent.
func (s *PostgresStore) GetMessage(ctx context.Context, code string, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, content, url, chara_id, challenge, timestamp, edited, ipid
		FROM messages WHERE room_code = $1 AND id = $2
	`, code, id).Scan(&msg.ID, &msg.Type, &msg.Content, &msg.URL, &msg.CharaID, &msg.Challenge, &msg.Timestamp, &msg.Edited, &msg.IPID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// EditMessage overwrites a stored message's mutable fields.
func (s *PostgresStore) EditMessage(ctx context.Context, code string, msg *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET content = $1, edited = $2
		WHERE room_code = $3 AND id = $4
	`, msg.Content, msg.Edited, code, msg.ID)
	return err
}

// Messages returns the ascending id range [offset, offset+limit) and
// the total message count for the room.
func (s *PostgresStore) Messages(ctx context.Context, code string, offset, limit int) ([]models.Message, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE room_code = $1
	`, code).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, type, content, url, chara_id, challenge, timestamp, edited, ipid
		FROM messages WHERE room_code = $1
		ORDER BY id OFFSET $2`
	args := []any{code, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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
func (s *PostgresStore) AddChara(ctx context.Context, code string, chara *models.Chara) (int64, error) {
	id, err := s.nextID(ctx, code, "charas", func(tx pgx.Tx, id int64) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO charas (room_code, id, name, color)
			VALUES ($1, $2, $3, $4)
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
func (s *PostgresStore) Charas(ctx context.Context, code string) ([]models.Chara, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, color FROM charas
		WHERE room_code = $1 ORDER BY id
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
func (s *PostgresStore) CharaExists(ctx context.Context, code string, charaID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM charas WHERE room_code = $1 AND id = $2)
	`, code, charaID).Scan(&exists)
	return exists, err
}
