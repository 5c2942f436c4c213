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
	"strings"
	"testing"
)

func TestCapabilitiesWriteTo(t *testing.T) {
	var buf strings.Builder
	caps := CapabilitiesResponse{"connect", "push", "fetch"}
	if _, err := caps.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	want := "connect\npush\nfetch\n\n"
	if got := buf.String(); got != want {
		t.Errorf("Capabilities.WriteTo() = %q; want %q", got, want)
	}
}

func TestListWriteToEmpty(t *testing.T) {
	var buf strings.Builder
	if _, err := ListResponse(nil).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "\n" {
		t.Errorf("ListResponse(nil).WriteTo() = %q; want %q", got, "\n")
	}
}

func TestListWriteToRefs(t *testing.T) {
	var buf strings.Builder
	l := ListResponse{
		{SHA: "8ab686eafeb1f44702738c8b0f24f2567c36da6d", Name: "refs/heads/main"},
		{Symbolic: "refs/heads/main", Name: "HEAD"},
		{Unknown: true, Name: "refs/heads/missing"},
	}
	if _, err := l.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	want := "8ab686eafeb1f44702738c8b0f24f2567c36da6d refs/heads/main\n" +
		"@refs/heads/main HEAD\n" +
		"? refs/heads/missing\n\n"
	if got := buf.String(); got != want {
		t.Errorf("ListResponse.WriteTo() = %q; want %q", got, want)
	}
}

func TestPushResultsWriteTo(t *testing.T) {
	var buf strings.Builder
	p := PushResults{
		{Dst: "refs/heads/main"},
		{Dst: "refs/heads/bad", Err: "Failed to resolve reference"},
	}
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	want := "ok refs/heads/main\n" +
		"error refs/heads/bad \"Failed to resolve reference\"\n\n"
	if got := buf.String(); got != want {
		t.Errorf("PushResults.WriteTo() = %q; want %q", got, want)
	}
}

func TestOKWriteTo(t *testing.T) {
	var buf strings.Builder
	if _, err := (OK{}).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "\n" {
		t.Errorf("OK.WriteTo() = %q; want %q", got, "\n")
	}
}
