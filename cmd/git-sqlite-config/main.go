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

// Command git-sqlite-config reads and writes the config table of a
// git-remote-sqlite database directly, outside of any remote-helper
// session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chrislloyd/git-remote-sqlite/internal/flag"
	"github.com/chrislloyd/git-remote-sqlite/internal/sqlitestore"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "git-sqlite-config:", err)
		os.Exit(1)
	}
}

const usage = "usage: git-sqlite-config <db> <key> <value> | --list | --get <key> | --unset <key>"

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(true)
	list := fs.Bool("list", false, "print every key/value pair")
	get := fs.String("get", "", "print the value of key")
	unset := fs.String("unset", "", "remove key")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", usage, err)
	}

	positional := fs.Args()
	if len(positional) < 1 {
		return errors.New(usage)
	}
	dbPath := positional[0]
	rest := positional[1:]

	store, err := sqlitestore.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer store.Close()

	switch {
	case *list:
		entries, err := store.IterateConfig()
		if err != nil {
			return fmt.Errorf("config --list: %w", err)
		}
		for _, e := range entries {
			fmt.Fprintf(stdout, "%s=%s\n", e.Key, e.Value)
		}
		return nil
	case *get != "":
		value, err := store.GetConfig(*get)
		if err != nil {
			return fmt.Errorf("config --get %s: %w", *get, err)
		}
		fmt.Fprintln(stdout, value)
		return nil
	case *unset != "":
		if err := store.UnsetConfig(*unset); err != nil {
			return fmt.Errorf("config --unset %s: %w", *unset, err)
		}
		return nil
	default:
		if len(rest) != 2 {
			return errors.New(usage)
		}
		if err := store.PutConfig(rest[0], rest[1]); err != nil {
			return fmt.Errorf("config %s %s: %w", rest[0], rest[1], err)
		}
		return nil
	}
}
