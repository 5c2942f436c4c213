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

package gitrepo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRefSpec(t *testing.T) {
	tests := []struct {
		text    string
		want    RefSpec
		wantErr bool
	}{
		{
			text: "refs/heads/main:refs/heads/main",
			want: RefSpec{Src: "refs/heads/main", Dst: "refs/heads/main"},
		},
		{
			text: "+refs/heads/main:refs/heads/main",
			want: RefSpec{Src: "refs/heads/main", Dst: "refs/heads/main", Force: true},
		},
		{
			text: "refs/heads/main",
			want: RefSpec{Src: "refs/heads/main", Dst: "refs/heads/main"},
		},
		{
			text:    "invalid::refspec",
			wantErr: true,
		},
		{
			text:    "",
			wantErr: true,
		},
		{
			text:    "HEAD:HEAD",
			wantErr: true,
		},
		{
			text:    "refs/heads/main:main",
			wantErr: true,
		},
	}
	for _, test := range tests {
		got, err := ParseRefSpec(test.text, Push)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseRefSpec(%q, Push) = %+v, <nil>; want error", test.text, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRefSpec(%q, Push) error: %v", test.text, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("ParseRefSpec(%q, Push) (-want +got):\n%s", test.text, diff)
		}
	}
}
