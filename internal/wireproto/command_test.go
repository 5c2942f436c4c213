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

package wireproto

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr bool
	}{
		{line: "", want: Command{Kind: EOF}},
		{line: "   ", want: Command{Kind: EOF}},
		{line: "capabilities", want: Command{Kind: Capabilities}},
		{line: "list", want: Command{Kind: List}},
		{line: "list for-push", want: Command{Kind: ListForPush}},
		{line: "list bogus", wantErr: true},
		{
			line: "fetch 8ab686eafeb1f44702738c8b0f24f2567c36da6d refs/heads/main",
			want: Command{Kind: Fetch, SHA: "8ab686eafeb1f44702738c8b0f24f2567c36da6d", Name: "refs/heads/main"},
		},
		{line: "fetch onlyonearg", wantErr: true},
		{
			line: "push refs/heads/main:refs/heads/main",
			want: Command{Kind: Push, Refspec: "refs/heads/main:refs/heads/main"},
		},
		{
			line: "push +refs/heads/main:refs/heads/main",
			want: Command{Kind: Push, Refspec: "+refs/heads/main:refs/heads/main"},
		},
		{
			line: "option verbosity 1",
			want: Command{Kind: Option, Name: "verbosity", Value: "1"},
		},
		{line: "import refs/heads/main", want: Command{Kind: Import, Name: "refs/heads/main"}},
		{line: "export", want: Command{Kind: Export}},
		{line: "connect git-upload-pack", want: Command{Kind: Connect, Service: "git-upload-pack"}},
		{
			line: "stateless-connect git-upload-pack",
			want: Command{Kind: StatelessConnect, Service: "git-upload-pack"},
		},
		{
			line: "get https://example.com/obj path/to/file",
			want: Command{Kind: Get, URI: "https://example.com/obj", Path: "path/to/file"},
		},
		{line: "bogus", wantErr: true},
		{line: "push", wantErr: true},
		{line: "option onlyonearg", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseCommand(test.line)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseCommand(%q) = %+v, <nil>; want error", test.line, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCommand(%q) error: %v", test.line, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("ParseCommand(%q) (-want +got):\n%s", test.line, diff)
		}
	}
}
