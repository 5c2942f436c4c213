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

// Package sqliteurl parses and validates the sqlite:// remote URLs Git
// passes to the remote helper as its second positional argument.
package sqliteurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	maxURLLength  = 2048
	maxPathLength = 1024
)

// Errors returned by Parse, matching the URL-error taxonomy.
var (
	ErrInvalidURL          = errors.New("sqlite url: invalid url")
	ErrInvalidPath         = errors.New("sqlite url: invalid path")
	ErrUnsupportedProtocol = errors.New("sqlite url: unsupported protocol")
)

// URL is a parsed, validated sqlite:// remote URL.
type URL struct {
	// Path is the database file path: a bare filename for a host-form
	// URL ("sqlite://name.db"), or a normalized absolute path for a
	// path-form URL ("sqlite:///abs/path.db").
	Path string
}

// Parse validates raw against every rule of the sqlite:// URL grammar and
// returns the resulting database path.
func Parse(raw string) (URL, error) {
	if len(raw) == 0 || len(raw) > maxURLLength {
		return URL{}, fmt.Errorf("parse url %q: %w: length out of range [1,%d]", raw, ErrInvalidURL, maxURLLength)
	}
	if strings.IndexByte(raw, 0) >= 0 {
		return URL{}, fmt.Errorf("parse url %q: %w: embedded NUL byte", raw, ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("parse url %q: %w: %v", raw, ErrInvalidURL, err)
	}
	if u.Scheme != "sqlite" {
		return URL{}, fmt.Errorf("parse url %q: %w: scheme %q", raw, ErrUnsupportedProtocol, u.Scheme)
	}

	hostForm := u.Host != ""
	pathForm := u.Path != ""
	switch {
	case hostForm && pathForm:
		return URL{}, fmt.Errorf("parse url %q: %w: ambiguous host-and-path form", raw, ErrInvalidURL)
	case hostForm:
		return URL{Path: u.Host}, nil
	case pathForm:
		normalized, err := normalizePath(u.Path)
		if err != nil {
			return URL{}, fmt.Errorf("parse url %q: %w", raw, err)
		}
		return URL{Path: normalized}, nil
	default:
		return URL{}, fmt.Errorf("parse url %q: %w: neither host nor path form", raw, ErrInvalidPath)
	}
}

// normalizePath resolves "." and ".." components of an absolute path-form
// URL path, rejecting the bare root and any ".." that would escape above
// the referenced root.
func normalizePath(p string) (string, error) {
	if len(p) > maxPathLength {
		return "", fmt.Errorf("%w: path length exceeds %d", ErrInvalidPath, maxPathLength)
	}
	if p == "/" {
		return "", fmt.Errorf("%w: bare root path", ErrInvalidPath)
	}
	var stack []string
	for _, comp := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: path traversal underflow", ErrInvalidPath)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, comp)
		}
	}
	return "/" + strings.Join(stack, "/"), nil
}
