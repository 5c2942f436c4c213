// Copyright 2023 The gg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore is the typed, transactional view over the relational
// database that backs a git-remote-sqlite repository: object storage,
// refs, symbolic refs, and server-side configuration.
package sqlitestore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed schema.sql
var sqlFiles embed.FS

const appID int32 = 0x73716c74 // "sqlt"

const currentUserVersion = 1

// Store is an open connection to a git-remote-sqlite database file.
//
// A Store is not safe for concurrent use by multiple goroutines; the core
// never shares one across sessions.
type Store struct {
	conn      *sqlite.Conn
	closeOnce sync.Once
	closeErr  error
}

// Open opens the database at path, creating the file and its schema if
// necessary. Schema creation is idempotent: opening an existing database
// that already matches the current schema version leaves its contents
// untouched.
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	conn.SetInterrupt(ctx.Done())
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, `PRAGMA foreign_keys = on;`, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	conn.SetInterrupt(nil)
	return &Store{conn: conn}, nil
}

// Close releases all resources associated with the store. It is safe to
// call more than once: a remote-helper session both defers Close and
// calls it explicitly on its success path to surface a close-time error
// in the process exit code, and only the first call reaches the
// connection.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func migrate(conn *sqlite.Conn) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return err
	}
	defer endFn(&err)

	gotVersion, err := ensureAppID(conn)
	if err != nil {
		return err
	}
	if gotVersion != currentUserVersion {
		if err := dropAllTables(conn); err != nil {
			return err
		}
	}
	if err := sqlitex.ExecuteScriptFS(conn, sqlFiles, "schema.sql", nil); err != nil {
		return err
	}
	userVersionStmt := fmt.Sprintf("PRAGMA user_version = %d;", currentUserVersion)
	return sqlitex.ExecuteTransient(conn, userVersionStmt, nil)
}

func ensureAppID(conn *sqlite.Conn) (schemaVersion int32, err error) {
	defer sqlitex.Save(conn)(&err)

	var hasSchema bool
	err = sqlitex.ExecuteTransient(conn, "VALUES ((SELECT COUNT(*) FROM sqlite_master) > 0);", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			hasSchema = stmt.ColumnInt(0) != 0
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	var dbAppID int32
	err = sqlitex.ExecuteTransient(conn, "PRAGMA application_id;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			dbAppID = stmt.ColumnInt32(0)
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if dbAppID != appID && !(dbAppID == 0 && !hasSchema) {
		return 0, fmt.Errorf("database application_id = %#x (expected %#x)", dbAppID, appID)
	}
	schemaVersion, err = userVersion(conn)
	if err != nil {
		return 0, err
	}
	// Using Sprintf because PRAGMAs don't permit arbitrary expressions and
	// thus don't permit parameter substitution.
	err = sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA application_id = %d;", appID), nil)
	if err != nil {
		return 0, err
	}
	return schemaVersion, nil
}

func userVersion(conn *sqlite.Conn) (int32, error) {
	var version int32
	err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt32(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("get database user_version: %w", err)
	}
	return version, nil
}

func dropAllTables(conn *sqlite.Conn) (err error) {
	defer sqlitex.Save(conn)(&err)

	var tables, views []string
	const query = `SELECT "type", "name" FROM sqlite_schema WHERE "type" in ('table', 'view');`
	err = sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			name := stmt.ColumnText(1)
			switch stmt.ColumnText(0) {
			case "table":
				tables = append(tables, name)
			case "view":
				views = append(views, name)
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("drop all tables: %w", err)
	}
	for _, name := range views {
		if err := sqlitex.ExecuteTransient(conn, `DROP VIEW "`+name+`";`, nil); err != nil {
			return fmt.Errorf("drop all tables: %w", err)
		}
	}
	for _, name := range tables {
		if err := sqlitex.ExecuteTransient(conn, `DROP TABLE "`+name+`";`, nil); err != nil {
			return fmt.Errorf("drop all tables: %w", err)
		}
	}
	return nil
}

// hasSchema reports whether the objects table has been created in this
// database. The remote engine uses this to treat a connection to a
// brand-new, schema-less database as an empty repository rather than an
// error (Open always creates the schema, so in practice this is only
// false for a database opened by something other than Store, but the
// check documents the contract list() relies on).
func (s *Store) hasSchema() (bool, error) {
	var exists bool
	err := sqlitex.ExecuteTransient(s.conn, `VALUES (EXISTS(SELECT 1 FROM sqlite_schema WHERE name = 'objects'));`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = stmt.ColumnBool(0)
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return exists, nil
}

// Errors returned by Store operations. Per the store's coarse failure
// contract, the underlying SQLite error is wrapped, not replaced: callers
// that need the detail can unwrap, but the taxonomy they see via errors.Is
// is always one of the sentinels below.
var (
	ErrRead             = errors.New("sqlite store: read failed")
	ErrWrite            = errors.New("sqlite store: write failed")
	ErrNotFound         = errors.New("sqlite store: not found")
	ErrInitializeFailed = errors.New("sqlite store: initialization failed")
)
