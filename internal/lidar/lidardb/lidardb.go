// Package lidardb persists decoded point clouds and per-session summaries
// in SQLite.
package lidardb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// LidarDB wraps the SQLite handle used for decode sessions.
type LidarDB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Open opens (or creates) the database at path, applies pragmas and runs
// pending migrations.
func Open(path string) (*LidarDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lidar database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	ldb := &LidarDB{db}
	if err := ldb.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	opsf("opened lidar database %s", path)
	return ldb, nil
}
