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

// Package objwalk lazily enumerates the transitive object closure of a
// commit: the commit itself, its ancestry, and every tree and blob
// reachable through each commit's tree, each emitted exactly once.
package objwalk

import (
	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
	"github.com/chrislloyd/git-remote-sqlite/internal/gitrepo"
)

type provenance int

const (
	fromCommit provenance = iota
	fromTreeRoot
	fromTreeEntry
)

type pendingItem struct {
	sha        gitobj.SHA
	provenance provenance
	isDir      bool // meaningful only for fromTreeEntry
}

type treeFrame struct {
	entries []treeEntry
	next    int
}

// Walker lazily enumerates the closure of a start commit. It is
// single-threaded, finite, and non-restartable: once exhausted, a Walker
// must be discarded.
type Walker struct {
	repo gitrepo.Repository

	visited map[gitobj.SHA]struct{}
	pending []pendingItem
	stack   []treeFrame

	commitQueue  []gitobj.SHA
	commitQueued map[gitobj.SHA]struct{}
}

// New returns a Walker that enumerates the closure reachable from start.
func New(repo gitrepo.Repository, start gitobj.SHA) *Walker {
	w := &Walker{
		repo:         repo,
		visited:      make(map[gitobj.SHA]struct{}),
		commitQueued: map[gitobj.SHA]struct{}{start: {}},
		commitQueue:  []gitobj.SHA{start},
	}
	return w
}

// Next returns the next SHA in the closure. The second return value is
// false once the walk is exhausted. Lookup failures for a pending object
// are skipped silently: the object is not emitted and traversal continues,
// so a repository with a broken ancestry link does not abort the walk.
func (w *Walker) Next() (gitobj.SHA, bool, error) {
	for {
		if len(w.pending) > 0 {
			item := w.pending[0]
			w.pending = w.pending[1:]
			if _, ok := w.visited[item.sha]; ok {
				continue
			}
			w.visited[item.sha] = struct{}{}
			if item.provenance == fromTreeEntry && !item.isDir {
				// Blob leaves are never fetched during the walk; the
				// engine reads their bytes later when transferring them.
				return item.sha, true, nil
			}
			if !w.expand(item) {
				// Lookup failure for this commit or tree: skip silently,
				// matching the requirement to tolerate a repository whose
				// ancestry contains missing entries.
				continue
			}
			return item.sha, true, nil
		}

		if len(w.stack) > 0 {
			top := &w.stack[len(w.stack)-1]
			if top.next >= len(top.entries) {
				w.stack = w.stack[:len(w.stack)-1]
				continue
			}
			entry := top.entries[top.next]
			top.next++
			w.pending = append(w.pending, pendingItem{
				sha:        entry.sha,
				provenance: fromTreeEntry,
				isDir:      entry.isDir,
			})
			continue
		}

		if len(w.commitQueue) > 0 {
			next := w.commitQueue[0]
			w.commitQueue = w.commitQueue[1:]
			w.pending = append(w.pending, pendingItem{sha: next, provenance: fromCommit})
			continue
		}

		return gitobj.SHA{}, false, nil
	}
}

// expand performs the provenance-specific follow-up work for a
// newly-visited commit or tree: queuing a commit's parents and root tree,
// or pushing a tree's entries onto the stack for traversal. It reports
// whether the object could be read and decoded; on false, the caller
// treats the item as though it had never been queued, per the
// requirement to tolerate missing objects in the ancestry.
func (w *Walker) expand(item pendingItem) bool {
	switch item.provenance {
	case fromCommit:
		kind, data, err := w.repo.GetObject(item.sha)
		if err != nil || kind != gitobj.Commit {
			return false
		}
		tree, parents, err := parseCommitTreeAndParents(data)
		if err != nil {
			return false
		}
		w.pending = append(w.pending, pendingItem{sha: tree, provenance: fromTreeRoot})
		for _, p := range parents {
			if _, ok := w.commitQueued[p]; ok {
				continue
			}
			w.commitQueued[p] = struct{}{}
			w.commitQueue = append(w.commitQueue, p)
		}
		return true
	case fromTreeRoot, fromTreeEntry:
		return w.pushTree(item.sha)
	default:
		return false
	}
}

func (w *Walker) pushTree(sha gitobj.SHA) bool {
	kind, data, err := w.repo.GetObject(sha)
	if err != nil || kind != gitobj.Tree {
		return false
	}
	entries, err := parseTreeEntries(data)
	if err != nil {
		return false
	}
	w.stack = append(w.stack, treeFrame{entries: entries})
	return true
}
