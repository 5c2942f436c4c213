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

package remotehelper

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
	"github.com/chrislloyd/git-remote-sqlite/internal/gitrepo"
	"github.com/chrislloyd/git-remote-sqlite/internal/sqlitestore"
)

// testRepo is a local-working-repository double: an in-memory object
// store (gitrepo.Map) plus an in-memory ref table, satisfying Repo
// without an on-disk checkout.
type testRepo struct {
	gitrepo.Map
	refs map[gitobj.Ref]gitobj.SHA
}

func newTestRepo() *testRepo {
	return &testRepo{refs: make(map[gitobj.Ref]gitobj.SHA)}
}

func (r *testRepo) ResolveRef(name gitobj.Ref) (gitobj.SHA, error) {
	sha, ok := r.refs[name]
	if !ok {
		return gitobj.SHA{}, fmt.Errorf("resolve ref %s: not found", name)
	}
	return sha, nil
}

func (r *testRepo) PutObject(kind gitobj.Kind, content []byte) (gitobj.SHA, error) {
	return r.Map.Add(gitrepo.Object{Kind: kind, Data: content}), nil
}

func openTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlitestore.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func commitWithReadme(t *testing.T, repo *testRepo, body string) gitobj.SHA {
	t.Helper()
	blob := repo.Map.Add(gitrepo.Object{Kind: gitobj.Blob, Data: []byte(body)})
	treeData := append([]byte("100644 README.md\x00"), blob[:]...)
	treeObj := repo.Map.Add(gitrepo.Object{Kind: gitobj.Tree, Data: treeData})
	commitData := []byte(fmt.Sprintf("tree %s\nauthor t <t@t> 0 +0000\ncommitter t <t@t> 0 +0000\n\nmsg\n", treeObj))
	return repo.Map.Add(gitrepo.Object{Kind: gitobj.Commit, Data: commitData})
}

func TestListEmptyDatabase(t *testing.T) {
	store := openTestStore(t)
	s := &Session{Store: store, Repo: newTestRepo()}
	got, err := s.list()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("list() = %v; want empty", got)
	}
}

func TestPushThenList(t *testing.T) {
	store := openTestStore(t)
	repo := newTestRepo()
	commit := commitWithReadme(t, repo, "# Test Repository\nThis is a test file.\n")
	repo.refs["refs/heads/main"] = commit

	s := &Session{Store: store, Repo: repo}
	result := s.pushOne("refs/heads/main:refs/heads/main")
	if result.Err != "" {
		t.Fatalf("pushOne() error = %q", result.Err)
	}

	count, err := store.CountObjects()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("CountObjects() = %d; want 3 (blob, tree, commit)", count)
	}

	list, err := s.list()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "refs/heads/main" || list[0].SHA != commit.String() {
		t.Errorf("list() = %+v; want one ref pointing at %v", list, commit)
	}
}

func TestPushThenFetchRoundTrip(t *testing.T) {
	store := openTestStore(t)
	pushRepo := newTestRepo()
	commit := commitWithReadme(t, pushRepo, "# Test Repository\nThis is a test file.\n")
	pushRepo.refs["refs/heads/main"] = commit

	pushSession := &Session{Store: store, Repo: pushRepo}
	if result := pushSession.pushOne("refs/heads/main:refs/heads/main"); result.Err != "" {
		t.Fatalf("push error: %s", result.Err)
	}

	cloneRepo := newTestRepo()
	fetchSession := &Session{Store: store, Repo: cloneRepo}
	if err := fetchSession.fetch(nil); err != nil {
		t.Fatal(err)
	}

	kind, content, err := cloneRepo.GetObject(commit)
	if err != nil {
		t.Fatalf("cloned repository missing commit: %v", err)
	}
	if kind != gitobj.Commit {
		t.Errorf("cloned commit kind = %v; want commit", kind)
	}
	if !strings.Contains(string(content), "tree ") {
		t.Errorf("cloned commit content = %q; missing tree header", content)
	}
}

func TestPushInvalidRefspec(t *testing.T) {
	store := openTestStore(t)
	s := &Session{Store: store, Repo: newTestRepo()}
	result := s.pushOne("invalid::refspec")
	if result.Err != "Invalid refspec format" {
		t.Errorf("pushOne(%q).Err = %q; want %q", "invalid::refspec", result.Err, "Invalid refspec format")
	}
}

func TestPushUnresolvableSource(t *testing.T) {
	store := openTestStore(t)
	s := &Session{Store: store, Repo: newTestRepo()}
	result := s.pushOne("refs/heads/missing:refs/heads/missing")
	if result.Err != "Failed to resolve reference" {
		t.Errorf("pushOne().Err = %q; want %q", result.Err, "Failed to resolve reference")
	}
}

func TestOptionTable(t *testing.T) {
	s := &Session{}
	tests := []struct {
		name string
		want string
	}{
		{"verbosity", "ok\n"},
		{"progress", "unsupported\n"},
		{"timeout", "unsupported\n"},
		{"depth", "unsupported\n"},
		{"some-other-option", "ok\n"},
	}
	for _, test := range tests {
		var buf strings.Builder
		if _, err := s.option(test.name).WriteTo(&buf); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); got != test.want {
			t.Errorf("option(%q) = %q; want %q", test.name, got, test.want)
		}
	}
}

// TestRunSession drives Run end to end over an io.Reader/io.Writer pair:
// capabilities, an empty list, and a one-refspec push batch closed by the
// blank line a host process sends to end the batch.
func TestRunSession(t *testing.T) {
	store := openTestStore(t)
	repo := newTestRepo()
	commit := commitWithReadme(t, repo, "# Test Repository\n")
	repo.refs["refs/heads/main"] = commit
	s := &Session{Store: store, Repo: repo}

	input := "capabilities\n" +
		"list\n" +
		"push refs/heads/main:refs/heads/main\n" +
		"\n"
	var stdout, stderr strings.Builder
	if err := s.Run(strings.NewReader(input), &stdout, &stderr); err != nil {
		t.Fatalf("Run() error = %v; stderr = %q", err, stderr.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("Run() wrote to stderr: %q", stderr.String())
	}

	want := "push\nfetch\nprogress\noption\n\n" + // capabilities
		"\n" + // list: empty database, no refs yet
		"ok refs/heads/main\n\n" // push batch result
	if got := stdout.String(); got != want {
		t.Errorf("Run() stdout = %q; want %q", got, want)
	}
}

// TestRunSessionBatchedFetch exercises collectBatch's blank-line framing:
// two fetch command lines followed by one blank line produce exactly one
// "ok" response, not two.
func TestRunSessionBatchedFetch(t *testing.T) {
	store := openTestStore(t)
	repo := newTestRepo()
	commit := commitWithReadme(t, repo, "# Test Repository\n")
	repo.refs["refs/heads/main"] = commit
	pushSession := &Session{Store: store, Repo: repo}
	if result := pushSession.pushOne("refs/heads/main:refs/heads/main"); result.Err != "" {
		t.Fatalf("pushOne() error = %s", result.Err)
	}

	cloneRepo := newTestRepo()
	s := &Session{Store: store, Repo: cloneRepo}
	input := fmt.Sprintf("fetch %s refs/heads/main\nfetch %s refs/heads/main\n\n", commit, commit)
	var stdout, stderr strings.Builder
	if err := s.Run(strings.NewReader(input), &stdout, &stderr); err != nil {
		t.Fatalf("Run() error = %v; stderr = %q", err, stderr.String())
	}
	if got, want := stdout.String(), "\n"; got != want {
		t.Errorf("Run() stdout = %q; want %q (one ok for the whole batch)", got, want)
	}
	if _, err := cloneRepo.GetObject(commit); err != nil {
		t.Errorf("cloned repository missing commit after batched fetch: %v", err)
	}
}

// TestRunUnimplementedVerbIsFatal covers the connect/import/export/
// stateless-connect/get path: Run reports the verb on stderr and returns
// a non-nil error, ending the session instead of hanging.
func TestRunUnimplementedVerbIsFatal(t *testing.T) {
	tests := []string{
		"connect git-upload-pack\n",
		"import refs/heads/main\n",
		"export\n",
		"stateless-connect git-upload-pack\n",
		"get http://example.com/x /tmp/x\n",
	}
	for _, input := range tests {
		store := openTestStore(t)
		s := &Session{Store: store, Repo: newTestRepo()}
		var stdout, stderr strings.Builder
		err := s.Run(strings.NewReader(input), &stdout, &stderr)
		if err == nil {
			t.Errorf("Run(%q) error = nil; want a fatal error", input)
		}
		if stderr.Len() == 0 {
			t.Errorf("Run(%q) wrote nothing to stderr; want the unimplemented verb reported", input)
		}
	}
}

// TestRunInvalidCommandIsFatal covers the protocol-error path: a line
// ParseCommand rejects ends the session with an error, not a panic or a
// silent skip.
func TestRunInvalidCommandIsFatal(t *testing.T) {
	store := openTestStore(t)
	s := &Session{Store: store, Repo: newTestRepo()}
	var stdout, stderr strings.Builder
	err := s.Run(strings.NewReader("bogus-verb\n"), &stdout, &stderr)
	if err == nil {
		t.Error("Run() error = nil; want error for an unrecognized command line")
	}
	if stderr.Len() == 0 {
		t.Error("Run() wrote nothing to stderr; want the parse error reported")
	}
}
