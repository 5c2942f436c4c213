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

package sqlitestore

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ConfigEntry is one row of iterate_config().
type ConfigEntry struct {
	Key   string
	Value string
}

// PutConfig upserts a server-side configuration value. Config values are
// storage only: the core never reads them back to make decisions.
func (s *Store) PutConfig(key, value string) error {
	err := sqlitex.Execute(s.conn,
		`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value;`,
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("put config %s: %w: %v", key, ErrWrite, err)
	}
	return nil
}

// GetConfig returns the value for key, or an error wrapping ErrNotFound if
// key is unset.
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	found := false
	err := sqlitex.Execute(s.conn, `SELECT value FROM config WHERE key = ?;`, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			value = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("get config %s: %w: %v", key, ErrRead, err)
	}
	if !found {
		return "", fmt.Errorf("get config %s: %w", key, ErrNotFound)
	}
	return value, nil
}

// UnsetConfig removes key, if present. Unsetting an absent key is not an
// error.
func (s *Store) UnsetConfig(key string) error {
	err := sqlitex.Execute(s.conn, `DELETE FROM config WHERE key = ?;`, &sqlitex.ExecOptions{Args: []any{key}})
	if err != nil {
		return fmt.Errorf("unset config %s: %w: %v", key, ErrWrite, err)
	}
	return nil
}

// IterateConfig returns every (key, value) pair ordered by key ascending.
func (s *Store) IterateConfig() ([]ConfigEntry, error) {
	var entries []ConfigEntry
	err := sqlitex.Execute(s.conn, `SELECT key, value FROM config ORDER BY key ASC;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, ConfigEntry{Key: stmt.ColumnText(0), Value: stmt.ColumnText(1)})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("iterate config: %w: %v", ErrRead, err)
	}
	return entries, nil
}
