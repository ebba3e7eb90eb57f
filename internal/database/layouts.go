package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/roomgen/internal/layoutfile"
)

var (
	ErrLayoutExists   = errors.New("database: layout already stored")
	ErrLayoutNotFound = errors.New("database: layout not found")
)

// LayoutSummary is one row of the layouts table.
type LayoutSummary struct {
	ID          int64
	Digest      string
	Seed        int64
	RoomCount   int
	BlockCount  int
	GeneratedAt time.Time
}

// SaveLayout stores a layout with its rooms, blocks and neighbor lists in one
// transaction. A layout whose digest is already stored yields ErrLayoutExists.
func (d *Database) SaveLayout(ctx context.Context, doc *layoutfile.Document) (int64, error) {
	if doc.Digest == "" {
		doc.Digest = doc.ComputeDigest()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := d.insertLayout(ctx, tx, doc)
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: %s", ErrLayoutExists, doc.Digest)
		}
		return 0, fmt.Errorf("failed to insert layout: %w", err)
	}

	roomStmt, err := tx.PrepareContext(ctx, d.qb.Build(
		`INSERT INTO layout_rooms (layout_id, room_index, partitioned, door_count) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return 0, err
	}
	defer roomStmt.Close()

	blockStmt, err := tx.PrepareContext(ctx, d.qb.Build(
		`INSERT INTO layout_blocks (layout_id, room_index, position, x, y, side_up, side_right, side_down, side_left)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, err
	}
	defer blockStmt.Close()

	neighborStmt, err := tx.PrepareContext(ctx, d.qb.Build(
		`INSERT INTO layout_neighbors (layout_id, room_index, neighbor_index) VALUES (?, ?, ?)`))
	if err != nil {
		return 0, err
	}
	defer neighborStmt.Close()

	for _, room := range doc.Rooms {
		if _, err := roomStmt.ExecContext(ctx, id, room.Index, room.Partitioned, room.DoorCount); err != nil {
			return 0, fmt.Errorf("failed to insert room %d: %w", room.Index, err)
		}
		for pos, b := range room.Blocks {
			if _, err := blockStmt.ExecContext(ctx, id, room.Index, pos, b.X, b.Y, b.Up, b.Right, b.Down, b.Left); err != nil {
				return 0, fmt.Errorf("failed to insert block (%d,%d): %w", b.X, b.Y, err)
			}
		}
		for _, n := range room.Neighbors {
			if _, err := neighborStmt.ExecContext(ctx, id, room.Index, n); err != nil {
				return 0, fmt.Errorf("failed to insert neighbor %d of room %d: %w", n, room.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit layout: %w", err)
	}
	return id, nil
}

func (d *Database) insertLayout(ctx context.Context, tx *sql.Tx, doc *layoutfile.Document) (int64, error) {
	query := d.qb.BuildWithReturning(
		`INSERT INTO layouts (digest, seed, room_count, block_count, generated_at) VALUES (?, ?, ?, ?, ?)`, "id")
	args := []any{doc.Digest, doc.Seed, len(doc.Rooms), doc.BlockCount(), doc.GeneratedAt.UTC()}

	if d.dialect.SupportsLastInsertID() {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	var id int64
	err := tx.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

// GetLayout loads a stored layout by id.
func (d *Database) GetLayout(ctx context.Context, id int64) (*layoutfile.Document, error) {
	doc := &layoutfile.Document{}
	var roomCount int
	err := d.db.QueryRowContext(ctx, d.qb.Build(
		`SELECT digest, seed, room_count, generated_at FROM layouts WHERE id = ?`), id,
	).Scan(&doc.Digest, &doc.Seed, &roomCount, &doc.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrLayoutNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load layout %d: %w", id, err)
	}

	doc.Rooms = make([]layoutfile.Room, roomCount)
	for i := range doc.Rooms {
		doc.Rooms[i].Index = i
		doc.Rooms[i].Neighbors = []int{}
	}

	if err := d.loadRooms(ctx, id, doc); err != nil {
		return nil, err
	}
	if err := d.loadBlocks(ctx, id, doc); err != nil {
		return nil, err
	}
	if err := d.loadNeighbors(ctx, id, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Database) loadRooms(ctx context.Context, id int64, doc *layoutfile.Document) error {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(
		`SELECT room_index, partitioned, door_count FROM layout_rooms WHERE layout_id = ? ORDER BY room_index`), id)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx, doors int
		var partitioned bool
		if err := rows.Scan(&idx, &partitioned, &doors); err != nil {
			return err
		}
		if idx < 0 || idx >= len(doc.Rooms) {
			return fmt.Errorf("layout %d: room index %d out of range", id, idx)
		}
		doc.Rooms[idx].Partitioned = partitioned
		doc.Rooms[idx].DoorCount = doors
	}
	return rows.Err()
}

func (d *Database) loadBlocks(ctx context.Context, id int64, doc *layoutfile.Document) error {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(
		`SELECT room_index, x, y, side_up, side_right, side_down, side_left
		 FROM layout_blocks WHERE layout_id = ? ORDER BY room_index, position`), id)
	if err != nil {
		return fmt.Errorf("failed to load blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		var b layoutfile.Block
		if err := rows.Scan(&idx, &b.X, &b.Y, &b.Up, &b.Right, &b.Down, &b.Left); err != nil {
			return err
		}
		if idx < 0 || idx >= len(doc.Rooms) {
			return fmt.Errorf("layout %d: block room index %d out of range", id, idx)
		}
		doc.Rooms[idx].Blocks = append(doc.Rooms[idx].Blocks, b)
	}
	return rows.Err()
}

func (d *Database) loadNeighbors(ctx context.Context, id int64, doc *layoutfile.Document) error {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(
		`SELECT room_index, neighbor_index FROM layout_neighbors WHERE layout_id = ? ORDER BY room_index, neighbor_index`), id)
	if err != nil {
		return fmt.Errorf("failed to load neighbors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx, n int
		if err := rows.Scan(&idx, &n); err != nil {
			return err
		}
		if idx < 0 || idx >= len(doc.Rooms) {
			return fmt.Errorf("layout %d: neighbor room index %d out of range", id, idx)
		}
		doc.Rooms[idx].Neighbors = append(doc.Rooms[idx].Neighbors, n)
	}
	return rows.Err()
}

// FindLayoutByDigest returns the id of the layout with the given digest.
func (d *Database) FindLayoutByDigest(ctx context.Context, digest string) (int64, error) {
	var id int64
	err := d.db.QueryRowContext(ctx, d.qb.Build(`SELECT id FROM layouts WHERE digest = ?`), digest).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: digest %s", ErrLayoutNotFound, digest)
	}
	return id, err
}

// ListLayouts returns the most recent layouts first, at most limit rows
// (all rows when limit <= 0).
func (d *Database) ListLayouts(ctx context.Context, limit int) ([]LayoutSummary, error) {
	query := `SELECT id, digest, seed, room_count, block_count, generated_at FROM layouts ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, d.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}
	defer rows.Close()

	var out []LayoutSummary
	for rows.Next() {
		var s LayoutSummary
		if err := rows.Scan(&s.ID, &s.Digest, &s.Seed, &s.RoomCount, &s.BlockCount, &s.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteLayout removes a layout and, through cascading keys, its rows.
func (d *Database) DeleteLayout(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, d.qb.Build(`DELETE FROM layouts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete layout %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", ErrLayoutNotFound, id)
	}
	return nil
}
