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

// Package wireproto parses the gitremote-helpers(7) line protocol into a
// tagged command value and renders the protocol's fixed response forms.
package wireproto

import (
	"fmt"
	"strings"
)

// Kind identifies which remote-helper verb a Command carries.
type Kind int

// The verbs gitremote-helpers(7) defines.
const (
	Capabilities Kind = iota
	List
	ListForPush
	Fetch
	Push
	Option
	Import
	Export
	Connect
	StatelessConnect
	Get
	// EOF is returned by ParseCommand for any line that is empty after
	// trimming. It is not a parse error: it ends a fetch or push batch,
	// and Session.Run skips one that arrives outside a batch.
	EOF
)

func (k Kind) String() string {
	switch k {
	case Capabilities:
		return "capabilities"
	case List:
		return "list"
	case ListForPush:
		return "list for-push"
	case Fetch:
		return "fetch"
	case Push:
		return "push"
	case Option:
		return "option"
	case Import:
		return "import"
	case Export:
		return "export"
	case Connect:
		return "connect"
	case StatelessConnect:
		return "stateless-connect"
	case Get:
		return "get"
	case EOF:
		return "<eof>"
	default:
		return "<unknown>"
	}
}

// Command is a single parsed line of remote-helper input.
type Command struct {
	Kind Kind

	// Fetch: SHA and Name. Push: Refspec. Option: Name and Value.
	// Connect/StatelessConnect: Service. Import: Name. Get: URI and Path.
	SHA     string
	Name    string
	Refspec string
	Value   string
	Service string
	URI     string
	Path    string
}

// ErrInvalidCommand is returned for any line that is not empty but does
// not match a recognized verb shape: an unknown first token, or a known
// verb missing a required argument.
type ErrInvalidCommand struct {
	Line string
}

func (e *ErrInvalidCommand) Error() string {
	return fmt.Sprintf("invalid command: %q", e.Line)
}

// ParseCommand parses a single line of remote-helper input. Surrounding
// whitespace is trimmed; an empty line after trimming yields the EOF
// command with a nil error, a batch terminator rather than a parse
// failure. Tokens are split on single spaces.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: EOF}, nil
	}
	fields := strings.Split(line, " ")
	switch fields[0] {
	case "capabilities":
		if len(fields) != 1 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Capabilities}, nil
	case "list":
		switch len(fields) {
		case 1:
			return Command{Kind: List}, nil
		case 2:
			if fields[1] != "for-push" {
				return Command{}, &ErrInvalidCommand{line}
			}
			return Command{Kind: ListForPush}, nil
		default:
			return Command{}, &ErrInvalidCommand{line}
		}
	case "fetch":
		if len(fields) != 3 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Fetch, SHA: fields[1], Name: fields[2]}, nil
	case "push":
		if len(fields) != 2 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Push, Refspec: fields[1]}, nil
	case "option":
		if len(fields) != 3 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Option, Name: fields[1], Value: fields[2]}, nil
	case "import":
		if len(fields) != 2 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Import, Name: fields[1]}, nil
	case "export":
		if len(fields) != 1 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Export}, nil
	case "connect":
		if len(fields) != 2 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Connect, Service: fields[1]}, nil
	case "stateless-connect":
		if len(fields) != 2 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: StatelessConnect, Service: fields[1]}, nil
	case "get":
		if len(fields) != 3 {
			return Command{}, &ErrInvalidCommand{line}
		}
		return Command{Kind: Get, URI: fields[1], Path: fields[2]}, nil
	default:
		return Command{}, &ErrInvalidCommand{line}
	}
}
