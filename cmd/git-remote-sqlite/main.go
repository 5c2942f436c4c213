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

// Command git-remote-sqlite is the gitremote-helpers(7) binary Git invokes
// for a "sqlite://" remote: it bridges stdin/stdout protocol traffic
// against a single SQLite database file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chrislloyd/git-remote-sqlite/internal/gitrepo"
	"github.com/chrislloyd/git-remote-sqlite/internal/remotehelper"
	"github.com/chrislloyd/git-remote-sqlite/internal/sqlitestore"
	"github.com/chrislloyd/git-remote-sqlite/internal/sqliteurl"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "git-remote-sqlite:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin *os.File, stdout *os.File, stderr *os.File) error {
	// Git always invokes a remote helper as "<remote-name> <url>"; dispatch
	// on argument shape beyond this is out of scope.
	if len(args) != 2 {
		return fmt.Errorf("usage: git-remote-sqlite <remote-name> <url>")
	}
	rawURL := args[1]

	gitDir := os.Getenv("GIT_DIR")
	if gitDir == "" {
		return fmt.Errorf("GIT_DIR not set")
	}

	u, err := sqliteurl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}

	store, err := sqlitestore.Open(ctx, u.Path)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}
	// Store.Close tolerates the second call below. The defer closes the
	// store on every early return from here on and discards its error;
	// only the explicit Close on the success path reports one.
	defer store.Close()

	repo, err := gitrepo.Open(gitDir)
	if err != nil {
		return fmt.Errorf("open remote: %w", err)
	}

	session := &remotehelper.Session{Store: store, Repo: repo}
	if err := session.Run(stdin, stdout, stderr); err != nil {
		return err
	}
	return store.Close()
}
