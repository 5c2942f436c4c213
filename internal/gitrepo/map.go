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

	"github.com/chrislloyd/git-remote-sqlite/internal/gitobj"
)

// Map is an in-memory implementation of [Repository], used by tests in
// this package and in internal/objwalk and internal/remotehelper that
// need a repository double without an on-disk Git checkout.
// The zero value is an empty repository.
type Map map[gitobj.SHA]Object

// GetObject returns the object's kind and content.
func (m Map) GetObject(sha gitobj.SHA) (gitobj.Kind, []byte, error) {
	obj, ok := m[sha]
	if !ok {
		return "", nil, fmt.Errorf("get object %v: not found", sha)
	}
	if got := gitobj.HashContent(obj.Kind, obj.Data); got != sha {
		return "", nil, fmt.Errorf("get object %v: corrupted", sha)
	}
	return obj.Kind, obj.Data, nil
}

// Add stores obj under its own sha and returns that sha.
func (m *Map) Add(obj Object) gitobj.SHA {
	if *m == nil {
		*m = make(Map)
	}
	sha := gitobj.HashContent(obj.Kind, obj.Data)
	(*m)[sha] = obj
	return sha
}

// Object is an in-memory Git object.
type Object struct {
	Kind gitobj.Kind
	Data []byte
}
