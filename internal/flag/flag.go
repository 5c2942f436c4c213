// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package flag provides the command-line flag parser behind
// git-sqlite-config. Unlike the standard library's flag package, it
// permits flags to be interspersed with positional arguments, which lets
// "git-sqlite-config --get key db.sqlite" and
// "git-sqlite-config db.sqlite --get key" parse the same way.
package flag

import (
	"fmt"
	"strconv"
	"strings"
)

// A FlagSet holds the bool and string flags git-sqlite-config defines
// (--list, --get, --unset) plus the positional arguments left over after
// parsing. The zero value is an empty set that allows flags and
// positional arguments to be interspersed.
type FlagSet struct {
	flags   map[string]value
	args    []string
	argStop bool
}

// NewFlagSet returns a new, empty flag set. When intersperse is false,
// parsing stops at the first positional argument, treating everything
// after it (including anything that looks like a flag) as positional.
func NewFlagSet(intersperse bool) *FlagSet {
	return &FlagSet{argStop: !intersperse}
}

// Bool defines a bool flag with the given name, default value, and usage
// string. The return value is the address of a bool that holds the
// flag's value once Parse returns.
func (f *FlagSet) Bool(name string, def bool, usage string) *bool {
	v := def
	f.define(name, (*boolValue)(&v))
	return &v
}

// String defines a string flag with the given name, default value, and
// usage string. The return value is the address of a string that holds
// the flag's value once Parse returns.
func (f *FlagSet) String(name string, def string, usage string) *string {
	v := def
	f.define(name, (*stringValue)(&v))
	return &v
}

func (f *FlagSet) define(name string, v value) {
	if _, exists := f.flags[name]; exists {
		panic("flag redefined: " + name)
	}
	if f.flags == nil {
		f.flags = make(map[string]value)
	}
	f.flags[name] = v
}

// Parse parses flag definitions from arguments, which should not include
// the command name. It must be called after every flag in the set is
// defined and before any flag's value is read.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = make([]string, 0, len(arguments))
	i := 0
flags:
	for ; i < len(arguments); i++ {
		a := arguments[i]
		var name, val string
		var hasval bool
		switch {
		case a == "--":
			i++
			break flags
		case strings.HasPrefix(a, "--"):
			name, val, hasval = split(a[2:])
		case a == "-":
			f.args = append(f.args, a)
			continue
		case strings.HasPrefix(a, "-"):
			name, val, hasval = split(a[1:])
		default:
			if f.argStop {
				break flags
			}
			f.args = append(f.args, a)
			continue
		}
		v := f.flags[name]
		if v == nil {
			return fmt.Errorf("flag provided but not defined: -%s", name)
		}
		if !hasval {
			if v.IsBoolFlag() {
				val = "true"
			} else if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: -%s", name)
			} else {
				i++
				val = arguments[i]
			}
		}
		if err := v.Set(val); err != nil {
			return fmt.Errorf("invalid value %q for flag -%s: %v", val, name, err)
		}
	}
	f.args = append(f.args, arguments[i:]...)
	return nil
}

func split(s string) (name, val string, hasVal bool) {
	i := strings.IndexByte(s, '=')
	if i == -1 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// Args returns the positional arguments left over after Parse.
func (f *FlagSet) Args() []string {
	return f.args[:len(f.args):len(f.args)]
}

// value is the interface behind a flag's stored pointer. Only bool and
// string flags exist because those are the only kinds git-sqlite-config
// needs.
type value interface {
	Set(string) error
	IsBoolFlag() bool
}

type boolValue bool

func (b *boolValue) Set(s string) error {
	v, err := strconv.ParseBool(s)
	*b = boolValue(v)
	return err
}

func (b *boolValue) IsBoolFlag() bool { return true }

type stringValue string

func (s *stringValue) Set(v string) error {
	*s = stringValue(v)
	return nil
}

func (s *stringValue) IsBoolFlag() bool { return false }
