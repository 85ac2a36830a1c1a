// Package recorder persists register change events into a SQLite
// file, one row per observed transition.
package recorder

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Event is one observed register transition.
type Event struct {
	Timestamp time.Time
	Address   uint16
	Label     string
	Old       uint16
	New       uint16
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    address INTEGER NOT NULL,
    label TEXT,
    old_value INTEGER,
    new_value INTEGER NOT NULL
);`

// Writer is a long-running goroutine draining change events into the
// SQLite file at dbPath. On shutdown it flushes whatever is still
// buffered in the channel before returning.
func Writer(ctx context.Context, wg *sync.WaitGroup, dbPath string, events <-chan Event, logger *log.Logger) {
	defer wg.Done()
	logger.Printf("recorder started, writing to %s", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		logger.Printf("ERROR: could not open database %s: %v", dbPath, err)
		return
	}
	defer db.Close()

	if _, err := db.Exec(createTableSQL); err != nil {
		logger.Printf("ERROR: could not create samples table: %v", err)
		return
	}

	write := func(ev Event) {
		_, err := db.Exec(
			"INSERT INTO samples(timestamp, address, label, old_value, new_value) VALUES(?, ?, ?, ?, ?)",
			ev.Timestamp.Format("2006-01-02 15:04:05.000"),
			ev.Address, ev.Label, ev.Old, ev.New)
		if err != nil {
			logger.Printf("ERROR: failed to insert sample: %v", err)
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				logger.Println("recorder channel closed, shutting down")
				return
			}
			write(ev)

		case <-ctx.Done():
			logger.Println("recorder draining remaining events")
			for len(events) > 0 {
				write(<-events)
			}
			return
		}
	}
}
