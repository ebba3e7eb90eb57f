package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/roomgen/internal/layout"
	"github.com/lawnchairsociety/roomgen/internal/layoutfile"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLayout(t *testing.T, seed int64) *layoutfile.Document {
	t.Helper()
	g := layout.New(layout.WithSeed(seed))
	if err := g.AddSolidRooms(3, 1, 4); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRoomsWithPartitions(2, 3, 5); err != nil {
		t.Fatal(err)
	}
	return layoutfile.FromRooms(g.RawRooms(), seed)
}

func TestOpen(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"layouts", "layout_rooms", "layout_blocks", "layout_neighbors"} {
		var count int
		if err := db.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("Failed to query %s table: %v", table, err)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := OpenSQLite(nestedPath)
	if err != nil {
		t.Fatalf("Failed to open database with nested path: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nestedPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(Config{Driver: "sqlite"}); err == nil {
		t.Error("expected error for empty sqlite path")
	}
}

func TestReopenKeepsLayouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := db.SaveLayout(context.Background(), testLayout(t, 1))
	if err != nil {
		t.Fatalf("SaveLayout() failed: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	if _, err := db.GetLayout(context.Background(), id); err != nil {
		t.Errorf("GetLayout() after reopen failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM layouts").Scan(&count); err == nil {
		t.Error("Expected error querying closed database")
	}
}

func TestSaveAndGetLayout(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	doc := testLayout(t, 42)

	id, err := db.SaveLayout(ctx, doc)
	if err != nil {
		t.Fatalf("SaveLayout() failed: %v", err)
	}

	loaded, err := db.GetLayout(ctx, id)
	if err != nil {
		t.Fatalf("GetLayout() failed: %v", err)
	}
	if loaded.Digest != doc.Digest || loaded.Seed != 42 {
		t.Errorf("loaded digest/seed = %s/%d", loaded.Digest, loaded.Seed)
	}
	if !loaded.GeneratedAt.Equal(doc.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", loaded.GeneratedAt, doc.GeneratedAt)
	}
	if len(loaded.Rooms) != len(doc.Rooms) {
		t.Fatalf("loaded %d rooms, want %d", len(loaded.Rooms), len(doc.Rooms))
	}
	// The digest covers geometry, sides, flags and neighbors
	if got := loaded.ComputeDigest(); got != doc.Digest {
		t.Error("stored layout differs from the saved one")
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("loaded layout is invalid: %v", err)
	}
	for i, room := range loaded.Rooms {
		if room.DoorCount != doc.Rooms[i].DoorCount {
			t.Errorf("room %d door count = %d, want %d", i, room.DoorCount, doc.Rooms[i].DoorCount)
		}
	}
}

func TestSaveLayoutRejectsDuplicate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	doc := testLayout(t, 7)

	if _, err := db.SaveLayout(ctx, doc); err != nil {
		t.Fatalf("SaveLayout() failed: %v", err)
	}
	if _, err := db.SaveLayout(ctx, doc); !errors.Is(err, ErrLayoutExists) {
		t.Errorf("second SaveLayout() error = %v, want ErrLayoutExists", err)
	}

	layouts, err := db.ListLayouts(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(layouts) != 1 {
		t.Errorf("got %d layouts after duplicate save, want 1", len(layouts))
	}
}

func TestFindLayoutByDigest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	doc := testLayout(t, 3)

	id, err := db.SaveLayout(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	found, err := db.FindLayoutByDigest(ctx, doc.Digest)
	if err != nil || found != id {
		t.Errorf("FindLayoutByDigest() = (%d, %v), want (%d, nil)", found, err, id)
	}
	if _, err := db.FindLayoutByDigest(ctx, "missing"); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("expected ErrLayoutNotFound, got %v", err)
	}
}

func TestListLayouts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var ids []int64
	for seed := int64(1); seed <= 3; seed++ {
		id, err := db.SaveLayout(ctx, testLayout(t, seed))
		if err != nil {
			t.Fatalf("SaveLayout(seed %d) failed: %v", seed, err)
		}
		ids = append(ids, id)
	}

	all, err := db.ListLayouts(ctx, 0)
	if err != nil {
		t.Fatalf("ListLayouts() failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] {
		t.Errorf("ListLayouts() = %+v, want newest first", all)
	}
	if all[0].RoomCount != 5 || all[0].Seed != 3 {
		t.Errorf("summary = %+v, want 5 rooms from seed 3", all[0])
	}

	limited, err := db.ListLayouts(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("ListLayouts(2) returned %d rows", len(limited))
	}
}

func TestDeleteLayout(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.SaveLayout(ctx, testLayout(t, 9))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteLayout(ctx, id); err != nil {
		t.Fatalf("DeleteLayout() failed: %v", err)
	}
	if _, err := db.GetLayout(ctx, id); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("GetLayout() after delete error = %v, want ErrLayoutNotFound", err)
	}

	var blocks int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM layout_blocks WHERE layout_id = ?", id).Scan(&blocks); err != nil {
		t.Fatal(err)
	}
	if blocks != 0 {
		t.Errorf("%d blocks left after delete, want cascade", blocks)
	}

	if err := db.DeleteLayout(ctx, id); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("second DeleteLayout() error = %v, want ErrLayoutNotFound", err)
	}
}
