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
	"fmt"
	"io"
	"sort"
	"strings"
)

// CapabilitiesResponse renders the capabilities command's response: one
// capability per line, in the given order, terminated by a blank line.
type CapabilitiesResponse []string

func (c CapabilitiesResponse) WriteTo(w io.Writer) (int64, error) {
	var buf strings.Builder
	for _, cap := range c {
		buf.WriteString(cap)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	n, err := io.WriteString(w, buf.String())
	return int64(n), err
}

// RefLine is one line of a list response: a ref whose value is a direct
// SHA, a symbolic pointer at another ref, or an unborn/unknown ref.
type RefLine struct {
	// SHA is the ref's value, rendered as "<sha> <name>". Mutually
	// exclusive with Symbolic and Unknown.
	SHA string
	// Symbolic is the target ref name for a symref, rendered as
	// "@<target> <name>".
	Symbolic string
	// Unknown renders the ref as "? <name>", meaning its value cannot be
	// determined.
	Unknown bool
	Name    string
	// Attrs holds key-value attributes emitted after the name, sorted by
	// key, as "<value> <name> <k1>:<v1> <k2>:<v2> ...".
	Attrs map[string]string
}

func (r RefLine) render() string {
	var value string
	switch {
	case r.Symbolic != "":
		value = "@" + r.Symbolic
	case r.Unknown:
		value = "?"
	default:
		value = r.SHA
	}
	line := fmt.Sprintf("%s %s", value, r.Name)
	if len(r.Attrs) == 0 {
		return line
	}
	keys := make([]string, 0, len(r.Attrs))
	for k := range r.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s:%s", k, r.Attrs[k])
	}
	return line
}

// ListResponse renders the response to list and list for-push: one ref
// line per entry, terminated by a blank line. An empty ListResponse still
// emits the terminating blank line, which is how a fresh, empty
// repository is advertised.
type ListResponse []RefLine

func (l ListResponse) WriteTo(w io.Writer) (int64, error) {
	var buf strings.Builder
	for _, ref := range l {
		buf.WriteString(ref.render())
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	n, err := io.WriteString(w, buf.String())
	return int64(n), err
}

// OK is the blank-line acknowledgment sent once a fetch batch completes.
type OK struct{}

func (OK) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "\n")
	return int64(n), err
}

// OptionOK is option's successful per-line response.
type OptionOK struct{}

func (OptionOK) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "ok\n")
	return int64(n), err
}

// OptionUnsupported is option's response for an option the helper
// declines to support.
type OptionUnsupported struct{}

func (OptionUnsupported) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "unsupported\n")
	return int64(n), err
}

// OptionError is option's response for a recognized option with an
// invalid value.
type OptionError struct {
	Message string
}

func (e OptionError) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "error %s\n", e.Message)
	return int64(n), err
}

// PushResult is one push command's per-refspec result line, either
// "ok <dst>" or "error <dst> <why>".
type PushResult struct {
	Dst string
	Err string
}

func (r PushResult) render() string {
	if r.Err == "" {
		return fmt.Sprintf("ok %s", r.Dst)
	}
	return fmt.Sprintf("error %s %q", r.Dst, r.Err)
}

// PushResults renders the batched response to a sequence of push
// commands: one result line per refspec, terminated by a blank line.
type PushResults []PushResult

func (p PushResults) WriteTo(w io.Writer) (int64, error) {
	var buf strings.Builder
	for _, r := range p {
		buf.WriteString(r.render())
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	n, err := io.WriteString(w, buf.String())
	return int64(n), err
}

// ConnectUnsupported renders the "fallback" answer to connect or
// stateless-connect, which tells Git to fall back to the batch commands
// instead of tunneling a native Git service. Session.Run does not send
// it: it treats both verbs as fatal.
type ConnectUnsupported struct{}

func (ConnectUnsupported) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "fallback\n")
	return int64(n), err
}
