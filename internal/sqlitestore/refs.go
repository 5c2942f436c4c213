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
	"strings"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// RefClass is the closed set of ref classes the refs table accepts.
type RefClass string

// Ref classes.
const (
	Branch RefClass = "branch"
	Tag    RefClass = "tag"
	Remote RefClass = "remote"
)

// RefEntry is one row of iterate_refs(): either a regular ref, or a
// symbolic ref whose target resolved to a sha, reported with class
// "symbolic".
type RefEntry struct {
	Name  string
	SHA   gitobj.SHA
	Class string
}

// PutRef upserts a ref. If value begins with the literal prefix "ref: ",
// the suffix is stored as a symbolic-ref target keyed by name and any
// regular-ref row of the same name is removed; otherwise value is parsed
// as a sha and a regular ref row of the given class is upserted, removing
// any symbolic-ref row of the same name.
func (s *Store) PutRef(name string, value string, class RefClass) (err error) {
	defer sqlitex.Save(s.conn)(&err)
	if target, ok := strings.CutPrefix(value, gitobj.SymbolicPrefix); ok {
		if err := sqlitex.Execute(s.conn, `DELETE FROM refs WHERE name = ?;`, &sqlitex.ExecOptions{Args: []any{name}}); err != nil {
			return fmt.Errorf("put ref %s: %w: %v", name, ErrWrite, err)
		}
		err := sqlitex.Execute(s.conn,
			`INSERT INTO symrefs (name, target) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET target = excluded.target;`,
			&sqlitex.ExecOptions{Args: []any{name, target}})
		if err != nil {
			return fmt.Errorf("put ref %s: %w: %v", name, ErrWrite, err)
		}
		return nil
	}
	sha, parseErr := gitobj.ParseSHA(value)
	if parseErr != nil {
		return fmt.Errorf("put ref %s: %w: invalid sha %q", name, ErrWrite, value)
	}
	if err := sqlitex.Execute(s.conn, `DELETE FROM symrefs WHERE name = ?;`, &sqlitex.ExecOptions{Args: []any{name}}); err != nil {
		return fmt.Errorf("put ref %s: %w: %v", name, ErrWrite, err)
	}
	err = sqlitex.Execute(s.conn,
		`INSERT INTO refs (name, sha1, class) VALUES (?, ?, ?) ON CONFLICT (name) DO UPDATE SET sha1 = excluded.sha1, class = excluded.class;`,
		&sqlitex.ExecOptions{Args: []any{name, sha.String(), string(class)}})
	if err != nil {
		return fmt.Errorf("put ref %s: %w: %v", name, ErrWrite, err)
	}
	return nil
}

// GetRef returns the sha a regular ref points to. Symbolic refs are not
// resolved by GetRef; callers that need HEAD-style indirection should
// follow symrefs themselves or use IterateRefs, which resolves them.
func (s *Store) GetRef(name string) (gitobj.SHA, error) {
	var sha gitobj.SHA
	found := false
	var parseErr error
	err := sqlitex.Execute(s.conn, `SELECT sha1 FROM refs WHERE name = ?;`, &sqlitex.ExecOptions{
		Args: []any{name},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			sha, parseErr = gitobj.ParseSHA(stmt.ColumnText(0))
			return parseErr
		},
	})
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("get ref %s: %w: %v", name, ErrRead, err)
	}
	if !found {
		return gitobj.SHA{}, fmt.Errorf("get ref %s: %w", name, ErrNotFound)
	}
	return sha, nil
}

// DeleteRef removes a regular ref row, if present. Deleting a name with
// no such row is not an error.
func (s *Store) DeleteRef(name string) error {
	err := sqlitex.Execute(s.conn, `DELETE FROM refs WHERE name = ?;`, &sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return fmt.Errorf("delete ref %s: %w: %v", name, ErrWrite, err)
	}
	return nil
}

// IterateRefs returns every regular ref ordered by name, followed by every
// symbolic ref whose target resolves in the refs table (reported with
// class "symbolic" and the resolved sha). Symbolic refs whose targets are
// absent are omitted.
func (s *Store) IterateRefs() ([]RefEntry, error) {
	var entries []RefEntry
	err := sqlitex.Execute(s.conn, `SELECT name, sha1, class FROM refs ORDER BY name ASC;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sha, err := gitobj.ParseSHA(stmt.ColumnText(1))
			if err != nil {
				return err
			}
			entries = append(entries, RefEntry{
				Name:  stmt.ColumnText(0),
				SHA:   sha,
				Class: stmt.ColumnText(2),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("iterate refs: %w: %v", ErrRead, err)
	}

	type symref struct {
		name   string
		target string
	}
	var symrefs []symref
	err = sqlitex.Execute(s.conn, `SELECT name, target FROM symrefs ORDER BY name ASC;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			symrefs = append(symrefs, symref{stmt.ColumnText(0), stmt.ColumnText(1)})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("iterate refs: %w: %v", ErrRead, err)
	}
	for _, sr := range symrefs {
		sha, err := s.GetRef(sr.target)
		if err != nil {
			// Target absent: omit per the documented contract.
			continue
		}
		entries = append(entries, RefEntry{
			Name:  sr.name,
			SHA:   sha,
			Class: "symbolic",
		})
	}
	return entries, nil
}
