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

// Package remotehelper implements the business semantics behind each
// gitremote-helpers(7) command, composing the store, the repository, and
// the object walker, driven by the protocol codec.
package remotehelper

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
	"github.com/chrislloyd/git-remote-sqlite/internal/gitrepo"
	"github.com/chrislloyd/git-remote-sqlite/internal/objwalk"
	"github.com/chrislloyd/git-remote-sqlite/internal/sqlitestore"
	"github.com/chrislloyd/git-remote-sqlite/internal/wireproto"
)

// Repo is the repository access the engine needs beyond plain object
// lookup: resolving a local ref to a commit sha (push's source), and
// writing an object read out of the store (fetch's destination). It is
// satisfied by *gitrepo.Repo and, in tests, by a double embedding
// gitrepo.Map.
type Repo interface {
	gitrepo.Repository
	ResolveRef(name gitobj.Ref) (gitobj.SHA, error)
	PutObject(kind gitobj.Kind, content []byte) (gitobj.SHA, error)
}

// advertisedCapabilities is the fixed, ordered capability set this engine
// claims: it declines import, export, connect, stateless-connect, and get
// by omission, then answers them with a fatal error if the host sends one
// anyway.
var advertisedCapabilities = []string{"push", "fetch", "progress", "option"}

// Session drives a single remote-helper protocol conversation over one
// store and one local repository, for as long as the host process keeps
// its pipe open.
type Session struct {
	Store *sqlitestore.Store
	Repo  Repo
}

// Run reads commands from r and writes responses to w until r reaches
// EOF. A command-level fatal error (a protocol error, an unimplemented
// verb, or a store/repo fault outside the recoverable error responses)
// is reported on stderr as a single line and also returned, ending the
// session. A broken pipe while writing a response is treated as a clean
// session end rather than an error, per the protocol's stdin-lifetime
// contract.
func (s *Session) Run(r io.Reader, w io.Writer, stderr io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd, err := wireproto.ParseCommand(sc.Text())
		if err != nil {
			return fatal(stderr, err)
		}
		switch cmd.Kind {
		case wireproto.EOF:
			continue
		case wireproto.Capabilities:
			if err := writeResponse(w, wireproto.CapabilitiesResponse(advertisedCapabilities)); err != nil {
				return endOnBrokenPipe(err)
			}
		case wireproto.List, wireproto.ListForPush:
			resp, err := s.list()
			if err != nil {
				return fatal(stderr, err)
			}
			if err := writeResponse(w, resp); err != nil {
				return endOnBrokenPipe(err)
			}
		case wireproto.Fetch:
			batch, err := collectBatch(sc, cmd, wireproto.Fetch)
			if err != nil {
				return fatal(stderr, err)
			}
			if err := s.fetch(batch); err != nil {
				return fatal(stderr, err)
			}
			if err := writeResponse(w, wireproto.OK{}); err != nil {
				return endOnBrokenPipe(err)
			}
		case wireproto.Push:
			batch, err := collectBatch(sc, cmd, wireproto.Push)
			if err != nil {
				return fatal(stderr, err)
			}
			if err := writeResponse(w, s.push(batch)); err != nil {
				return endOnBrokenPipe(err)
			}
		case wireproto.Option:
			if err := writeResponse(w, s.option(cmd.Name)); err != nil {
				return endOnBrokenPipe(err)
			}
		case wireproto.Import, wireproto.Export, wireproto.Connect, wireproto.StatelessConnect, wireproto.Get:
			return fatal(stderr, fmt.Errorf("%v: not implemented", cmd.Kind))
		}
	}
	return sc.Err()
}

// collectBatch reads additional lines from sc, all expected to be of
// kind, until a blank-line EOF command ends the batch.
func collectBatch(sc *bufio.Scanner, first wireproto.Command, kind wireproto.Kind) ([]wireproto.Command, error) {
	batch := []wireproto.Command{first}
	for sc.Scan() {
		cmd, err := wireproto.ParseCommand(sc.Text())
		if err != nil {
			return nil, err
		}
		if cmd.Kind == wireproto.EOF {
			return batch, nil
		}
		if cmd.Kind != kind {
			return nil, fmt.Errorf("unexpected %v command inside %v batch", cmd.Kind, kind)
		}
		batch = append(batch, cmd)
	}
	return batch, nil
}

func writeResponse(w io.Writer, r io.WriterTo) error {
	_, err := r.WriteTo(w)
	return err
}

func endOnBrokenPipe(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

func fatal(stderr io.Writer, err error) error {
	fmt.Fprintln(stderr, "git-remote-sqlite:", err)
	return err
}

// list implements spec's list / list for-push: a schema-less store (a
// freshly created database file) is reported as an empty ref set rather
// than an error, and symbolic refs are flattened to their resolved sha,
// not rendered with an "@target" indicator. See the Design Notes at the
// call site for the stricter alternative this deliberately does not take.
func (s *Session) list() (wireproto.ListResponse, error) {
	has, err := s.Store.HasSchema()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	if !has {
		return wireproto.ListResponse{}, nil
	}
	entries, err := s.Store.IterateRefs()
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	list := make(wireproto.ListResponse, 0, len(entries))
	for _, e := range entries {
		list = append(list, wireproto.RefLine{SHA: e.SHA.String(), Name: e.Name})
	}
	return list, nil
}

// fetch implements spec's fetch: it ignores the requested sha and name of
// every command in batch and transfers every object the store holds, of
// every kind, into the local repository. This is coarser than a fetch
// that respects the requested ref's closure; see the Design Notes at the
// call site.
func (s *Session) fetch(batch []wireproto.Command) error {
	_ = batch
	tx, err := s.Store.Begin()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range []gitobj.Kind{gitobj.Blob, gitobj.Tree, gitobj.Commit, gitobj.Tag} {
		err := s.Store.IterateObjectsByKind(kind, func(sha gitobj.SHA) error {
			k, content, err := s.Store.GetObject(sha)
			if err != nil {
				return err
			}
			wrote, err := s.Repo.PutObject(k, content)
			if err != nil {
				return err
			}
			if wrote != sha {
				return fmt.Errorf("wrote object as %v, store has %v", wrote, sha)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
	}
	return tx.Commit()
}

// push implements spec's push: one result per refspec in batch, never
// aborting the batch early on a single refspec's failure.
func (s *Session) push(batch []wireproto.Command) wireproto.PushResults {
	results := make(wireproto.PushResults, 0, len(batch))
	for _, cmd := range batch {
		results = append(results, s.pushOne(cmd.Refspec))
	}
	return results
}

// pushOne implements one "push [+]<src>:<dst>" refspec. The force flag is
// parsed but not consulted: every push is a forced upsert of dst, per the
// Design Notes this file's package doc does not silently resolve.
func (s *Session) pushOne(refspecText string) wireproto.PushResult {
	spec, err := gitrepo.ParseRefSpec(refspecText, gitrepo.Push)
	if err != nil {
		return wireproto.PushResult{Dst: refspecText, Err: "Invalid refspec format"}
	}

	tx, err := s.Store.Begin()
	if err != nil {
		return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
	}
	defer tx.Rollback()

	sha, err := s.Repo.ResolveRef(gitobj.Ref(spec.Src))
	if err != nil {
		return wireproto.PushResult{Dst: spec.Dst, Err: "Failed to resolve reference"}
	}

	w := objwalk.New(s.Repo, sha)
	for {
		objSHA, ok, err := w.Next()
		if err != nil {
			return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
		}
		if !ok {
			break
		}
		has, err := s.Store.HasObject(objSHA)
		if err != nil {
			return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
		}
		if has {
			continue
		}
		kind, content, err := s.Repo.GetObject(objSHA)
		if err != nil {
			return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
		}
		if err := s.Store.PutObject(objSHA, kind, content); err != nil {
			return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
		}
	}

	if err := s.Store.PutRef(spec.Dst, sha.String(), sqlitestore.Branch); err != nil {
		return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
	}
	if err := tx.Commit(); err != nil {
		return wireproto.PushResult{Dst: spec.Dst, Err: err.Error()}
	}
	return wireproto.PushResult{Dst: spec.Dst}
}

// option answers spec's fixed option table: verbosity is acknowledged,
// progress/timeout/depth are declined as unsupported, and any other name
// is acknowledged and ignored.
func (s *Session) option(name string) io.WriterTo {
	switch name {
	case "progress", "timeout", "depth":
		return wireproto.OptionUnsupported{}
	default:
		return wireproto.OptionOK{}
	}
}
