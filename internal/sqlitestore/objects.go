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
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// PutObject upserts the object with the given sha, kind, and raw payload.
// A sha that is not 40 lowercase hex characters or a kind outside the
// closed set {blob, tree, commit, tag} fails with ErrWrite.
func (s *Store) PutObject(sha gitobj.SHA, kind gitobj.Kind, content []byte) error {
	if !kind.IsValid() {
		return fmt.Errorf("put object %v: invalid kind %q: %w", sha, kind, ErrWrite)
	}
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(content); err != nil {
		return fmt.Errorf("put object %v: %w", sha, ErrWrite)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("put object %v: %w", sha, ErrWrite)
	}
	err := sqlitex.Execute(s.conn,
		`INSERT INTO objects (sha1, kind, uncompressed_size, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT (sha1) DO UPDATE SET kind = excluded.kind, uncompressed_size = excluded.uncompressed_size, content = excluded.content;`,
		&sqlitex.ExecOptions{
			Args: []any{sha.String(), kind.String(), int64(len(content)), compressed.Bytes()},
		})
	if err != nil {
		return fmt.Errorf("put object %v: %w: %v", sha, ErrWrite, err)
	}
	return nil
}

// HasObject reports whether sha is present in the store.
func (s *Store) HasObject(sha gitobj.SHA) (bool, error) {
	var found bool
	err := sqlitex.Execute(s.conn, `SELECT 1 FROM objects WHERE sha1 = ?;`, &sqlitex.ExecOptions{
		Args: []any{sha.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("has object %v: %w: %v", sha, ErrRead, err)
	}
	return found, nil
}

// GetObject returns the kind and raw payload of sha. It returns an error
// wrapping ErrNotFound if no such object exists, and verifies the stored
// content still hashes to sha, returning an error wrapping ErrRead if the
// row has been corrupted.
func (s *Store) GetObject(sha gitobj.SHA) (gitobj.Kind, []byte, error) {
	var kind gitobj.Kind
	var compressed []byte
	var size int64
	found := false
	err := sqlitex.Execute(s.conn, `SELECT kind, uncompressed_size, content FROM objects WHERE sha1 = ?;`, &sqlitex.ExecOptions{
		Args: []any{sha.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			kind = gitobj.Kind(stmt.ColumnText(0))
			size = stmt.ColumnInt64(1)
			compressed = make([]byte, stmt.ColumnLen(2))
			stmt.ColumnBytes(2, compressed)
			return nil
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("get object %v: %w: %v", sha, ErrRead, err)
	}
	if !found {
		return "", nil, fmt.Errorf("get object %v: %w", sha, ErrNotFound)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", nil, fmt.Errorf("get object %v: %w: %v", sha, ErrRead, err)
	}
	content := make([]byte, size)
	if _, err := io.ReadFull(zr, content); err != nil {
		return "", nil, fmt.Errorf("get object %v: %w: %v", sha, ErrRead, err)
	}
	if got := gitobj.HashContent(kind, content); got != sha {
		return "", nil, fmt.Errorf("get object %v: %w: corrupted content (hash = %v)", sha, ErrRead, got)
	}
	return kind, content, nil
}

// CountObjects returns the total number of objects in the store.
func (s *Store) CountObjects() (uint64, error) {
	var count int64
	err := sqlitex.Execute(s.conn, `SELECT COUNT(*) FROM objects;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count objects: %w: %v", ErrRead, err)
	}
	return uint64(count), nil
}

// IterateObjectsByKind calls f once for every sha of the given kind,
// ordered ascending, stopping and returning f's error if it returns one.
func (s *Store) IterateObjectsByKind(kind gitobj.Kind, f func(gitobj.SHA) error) error {
	var iterErr error
	err := sqlitex.Execute(s.conn, `SELECT sha1 FROM objects WHERE kind = ? ORDER BY sha1 ASC;`, &sqlitex.ExecOptions{
		Args: []any{kind.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sha, err := gitobj.ParseSHA(stmt.ColumnText(0))
			if err != nil {
				return err
			}
			if iterErr = f(sha); iterErr != nil {
				return iterErr
			}
			return nil
		},
	})
	if iterErr != nil {
		return iterErr
	}
	if err != nil {
		return fmt.Errorf("iterate objects (kind=%v): %w: %v", kind, ErrRead, err)
	}
	return nil
}
