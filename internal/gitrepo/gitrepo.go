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

// Package gitrepo provides bounded read/write access to a local working
// repository: ref resolution, object read by SHA, object write, and
// refspec parsing.
package gitrepo

import (
	"fmt"
	"io"
	"sync"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
)

// A type that implements Repository can retrieve Git objects by sha,
// returning the declared kind and raw post-header payload. The walker and
// the remote engine depend only on this narrow surface, not on *Repo
// directly, so tests can substitute Map for an on-disk repository.
type Repository interface {
	GetObject(sha gitobj.SHA) (gitobj.Kind, []byte, error)
}

var initOnce sync.Once

// initLibrary performs process-wide Git library setup exactly once,
// idempotently, with no teardown. go-git needs no explicit initialization
// call the way libgit2 does; the latch only builds a default-sized object
// cache once and discards it, so it leaves no process-wide state behind.
func initLibrary() {
	initOnce.Do(func() {
		cache.NewObjectLRUDefault()
	})
}

// Repo is a handle to a local working repository's object database,
// opened by GIT_DIR.
type Repo struct {
	gitDir string
	repo   *git.Repository
}

// Open opens the repository rooted at gitDir (the value of the GIT_DIR
// environment variable). gitDir is expected to already be the bare object
// database directory (what GIT_DIR points at), so PlainOpen is given it
// directly rather than searching upward for a .git directory.
func Open(gitDir string) (*Repo, error) {
	initLibrary()
	repo, err := git.PlainOpen(gitDir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", gitDir, err)
	}
	return &Repo{gitDir: gitDir, repo: repo}, nil
}

// ResolveRef returns the commit sha a named reference points to.
func (r *Repo) ResolveRef(name gitobj.Ref) (gitobj.SHA, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("resolve ref %s: %w", name, err)
	}
	sha, err := gitobj.ParseSHA(ref.Hash().String())
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("resolve ref %s: %w", name, err)
	}
	return sha, nil
}

// GetObject returns the declared Git kind and raw, uncompressed,
// post-header payload bytes of the object named by sha.
func (r *Repo) GetObject(sha gitobj.SHA) (gitobj.Kind, []byte, error) {
	hash := plumbing.NewHash(sha.String())
	obj, err := r.repo.Storer.EncodedObject(plumbing.AnyObject, hash)
	if err != nil {
		return "", nil, fmt.Errorf("get object %v: %w", sha, err)
	}
	kind, err := fromPlumbingType(obj.Type())
	if err != nil {
		return "", nil, fmt.Errorf("get object %v: %w", sha, err)
	}
	rc, err := obj.Reader()
	if err != nil {
		return "", nil, fmt.Errorf("get object %v: %w", sha, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return "", nil, fmt.Errorf("get object %v: %w", sha, err)
	}
	return kind, content, nil
}

// PutObject writes a loose object of the given kind and returns the
// resulting sha, which is the Git hash of (kind, content).
func (r *Repo) PutObject(kind gitobj.Kind, content []byte) (gitobj.SHA, error) {
	ptype, err := toPlumbingType(kind)
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("put object: %w", err)
	}
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(ptype)
	obj.SetSize(int64(len(content)))
	w, err := obj.Writer()
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("put object: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return gitobj.SHA{}, fmt.Errorf("put object: %w", err)
	}
	if err := w.Close(); err != nil {
		return gitobj.SHA{}, fmt.Errorf("put object: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("put object: %w", err)
	}
	sha, err := gitobj.ParseSHA(hash.String())
	if err != nil {
		return gitobj.SHA{}, fmt.Errorf("put object: %w", err)
	}
	if want := gitobj.HashContent(kind, content); want != sha {
		return gitobj.SHA{}, fmt.Errorf("put object: wrote %v, Git computed %v", want, sha)
	}
	return sha, nil
}

// SetRef writes name to point directly at sha, creating or replacing it.
func (r *Repo) SetRef(name gitobj.Ref, sha gitobj.SHA) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(sha.String()))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("set ref %s: %w", name, err)
	}
	return nil
}

func fromPlumbingType(t plumbing.ObjectType) (gitobj.Kind, error) {
	switch t {
	case plumbing.BlobObject:
		return gitobj.Blob, nil
	case plumbing.TreeObject:
		return gitobj.Tree, nil
	case plumbing.CommitObject:
		return gitobj.Commit, nil
	case plumbing.TagObject:
		return gitobj.Tag, nil
	default:
		return "", fmt.Errorf("invalid object type %v", t)
	}
}

func toPlumbingType(k gitobj.Kind) (plumbing.ObjectType, error) {
	switch k {
	case gitobj.Blob:
		return plumbing.BlobObject, nil
	case gitobj.Tree:
		return plumbing.TreeObject, nil
	case gitobj.Commit:
		return plumbing.CommitObject, nil
	case gitobj.Tag:
		return plumbing.TagObject, nil
	default:
		return plumbing.InvalidObject, fmt.Errorf("invalid object kind %q", k)
	}
}
