package recorder

import (
	"context"
	"database/sql"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWriterPersistsEvents(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "samples.db")
	events := make(chan Event, 10)
	logger := log.New(io.Discard, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go Writer(ctx, &wg, dbPath, events, logger)

	when := time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)
	events <- Event{Timestamp: when, Address: 0, Label: "Sequential Counter", Old: 42, New: 43}
	events <- Event{Timestamp: when, Address: 2, Label: "Second Counter", Old: 100, New: 101}

	// buffered events must be flushed on shutdown
	cancel()
	wg.Wait()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&count); err != nil {
		t.Fatalf("failed to count samples: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 samples, got %d", count)
	}

	var label string
	var oldVal, newVal int
	err = db.QueryRow(
		"SELECT label, old_value, new_value FROM samples WHERE address = 0").
		Scan(&label, &oldVal, &newVal)
	if err != nil {
		t.Fatalf("failed to read back sample: %v", err)
	}
	if label != "Sequential Counter" || oldVal != 42 || newVal != 43 {
		t.Errorf("unexpected sample: %s %d->%d", label, oldVal, newVal)
	}
}

func TestWriterStopsWhenChannelCloses(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "samples.db")
	events := make(chan Event, 1)
	logger := log.New(io.Discard, "", 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go Writer(context.Background(), &wg, dbPath, events, logger)

	events <- Event{Timestamp: time.Now(), Address: 1, Label: "Random Number", New: 7}
	close(events)
	wg.Wait()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&count); err != nil {
		t.Fatalf("failed to count samples: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 sample, got %d", count)
	}
}
