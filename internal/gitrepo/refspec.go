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
	"fmt"
	"strings"

	gogitconfig "github.com/go-git/go-git/v5/config"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
)

// Direction selects which side of a refspec's colon is the source and
// which is the destination, matching Git's push/fetch asymmetry.
type Direction int

// Refspec directions.
const (
	Push Direction = iota
	Fetch
)

// RefSpec is a parsed "[+]src:dst" refspec.
type RefSpec struct {
	Src   string
	Dst   string
	Force bool
}

// ParseRefSpec parses text as "[+]src:dst" or a lone "src" (in which case
// Dst equals Src). direction is accepted for interface symmetry with
// Git's own refspec handling; parsing itself is direction-independent.
//
// Shape (colon count, "+" placement) is validated by go-git's own
// config.RefSpec; Dst is additionally required to be a well-formed,
// "refs/"-namespaced ref name, since every destination ends up as the
// primary key of a refs table row that enforces the same shape.
func ParseRefSpec(text string, direction Direction) (RefSpec, error) {
	_ = direction
	force := strings.HasPrefix(text, "+")
	body := strings.TrimPrefix(text, "+")
	if body == "" {
		return RefSpec{}, fmt.Errorf("parse refspec %q: empty", text)
	}
	if !strings.Contains(body, ":") {
		if err := validateDst(body); err != nil {
			return RefSpec{}, fmt.Errorf("parse refspec %q: %w", text, err)
		}
		return RefSpec{Src: body, Dst: body, Force: force}, nil
	}
	candidate := body
	if force {
		candidate = "+" + body
	}
	if gogitconfig.RefSpec(candidate).Validate() != nil {
		return RefSpec{}, fmt.Errorf("parse refspec %q: invalid refspec format", text)
	}
	parts := strings.SplitN(body, ":", 2)
	src, dst := parts[0], parts[1]
	if dst == "" {
		return RefSpec{}, fmt.Errorf("parse refspec %q: empty destination", text)
	}
	if err := validateDst(dst); err != nil {
		return RefSpec{}, fmt.Errorf("parse refspec %q: %w", text, err)
	}
	return RefSpec{Src: src, Dst: dst, Force: force}, nil
}

// validateDst rejects destinations the refs table can never accept: a
// push's destination always lands in a PutRef call, whose row requires a
// "refs/"-namespaced name.
func validateDst(dst string) error {
	r := gitobj.Ref(dst)
	if !r.IsValid() {
		return fmt.Errorf("invalid destination ref %q", dst)
	}
	if !r.IsNamespaced() {
		return fmt.Errorf("destination ref %q is not under refs/", dst)
	}
	return nil
}
