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

	"zombiezen.com/go/sqlite/sqlitex"
)

// Tx is a single, non-nested store transaction. The engine opens exactly
// one of these per push or per fetch; list and the config CLI never open
// one.
type Tx struct {
	store *Store
	done  bool
}

// Begin opens a new immediate transaction. Every operation on s performed
// before the returned Tx is committed or rolled back participates in it.
func (s *Store) Begin() (*Tx, error) {
	if err := sqlitex.Execute(s.conn, `BEGIN IMMEDIATE;`, nil); err != nil {
		return nil, fmt.Errorf("begin transaction: %w: %v", ErrWrite, err)
	}
	return &Tx{store: s}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if err := sqlitex.Execute(tx.store.conn, `COMMIT;`, nil); err != nil {
		return fmt.Errorf("commit transaction: %w: %v", ErrWrite, err)
	}
	return nil
}

// Rollback aborts the transaction. Calling Rollback after a successful
// Commit, or more than once, is a no-op: callers are expected to
// `defer tx.Rollback()` immediately after Begin and Commit explicitly on
// the success path.
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if err := sqlitex.Execute(tx.store.conn, `ROLLBACK;`, nil); err != nil {
		return fmt.Errorf("rollback transaction: %w: %v", ErrWrite, err)
	}
	return nil
}

// Exec runs a single SQL statement with no result rows, for callers that
// need direct access below the typed CRUD methods.
func (s *Store) Exec(sql string, args ...any) error {
	if err := sqlitex.Execute(s.conn, sql, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("exec: %w: %v", ErrWrite, err)
	}
	return nil
}

// HasSchema reports whether the objects table exists on this connection.
// The remote engine's list operation uses this to treat a schema-less
// database as an empty repository rather than an error.
func (s *Store) HasSchema() (bool, error) {
	return s.hasSchema()
}
