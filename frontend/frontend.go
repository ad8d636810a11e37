/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package frontend implements the policy layer shared by the three
// command-line front-ends (general-purpose, dchroot-compatible, and
// the csbuild batch launcher): turning parsed CLI options into a
// session.Request, applying each front-end's directory and
// user-switching rules, and resolving chroot names the way each
// front-end is allowed to.
package frontend

import (
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/basuotian/chroots/config"
	"github.com/basuotian/chroots/session"
)

// DirectoryMode selects how a front-end picks the command's chdir
// target when no explicit directory was requested.
type DirectoryMode int

const (
	// LoginDirectories chdirs to the target user's home, then "/".
	LoginDirectories DirectoryMode = iota
	// CommandDirectories tries the caller's current working directory
	// first, then falls back to LoginDirectories' search.
	CommandDirectories
)

// Policy captures the rules one front-end applies on top of the
// engine's own operation set.
type Policy struct {
	// Name identifies the front-end in audit log lines and --version.
	Name string

	// AllowSessionOps permits --begin-session/--recover-session/
	// --end-session. dchroot forbids all three: compatibility mode
	// only ever runs transient or already-persisted root sessions.
	AllowSessionOps bool

	// AllowUserSwitch permits -u/--user to name someone other than the
	// calling user. When false, a mismatched -u is a USER_SWITCH error
	// raised before authentication, per spec.md §4.2.
	AllowUserSwitch bool

	// AliasOnly restricts chroot resolution to aliases, first match
	// wins, the legacy dchroot behaviour of "dchroot <alias>" picking
	// whichever configured chroot first declares that alias.
	AliasOnly bool

	// Directories is the chdir search order this front-end applies.
	Directories DirectoryMode

	// ExtraEnv returns additional NAME=VALUE pairs this front-end adds
	// to the command's environment (e.g. csbuild's CSBUILD_* variables).
	ExtraEnv func(opts Options) []string
}

// General is the unrestricted front-end policy (schroot's own default
// behaviour): user switching and all five operations are permitted,
// command directories prefer the caller's cwd.
func General() Policy {
	return Policy{
		Name:            "chroot",
		AllowSessionOps: true,
		AllowUserSwitch: true,
		Directories:     CommandDirectories,
	}
}

// Compat is the dchroot-compatible front-end policy: no session
// lifecycle verbs, alias-only first-match resolution, and login
// directories always (never the caller's cwd), matching
// dchroot/dchroot-main-base.h.
func Compat() Policy {
	return Policy{
		Name:            "dchroot",
		AllowSessionOps: false,
		AllowUserSwitch: false,
		AliasOnly:       true,
		Directories:     LoginDirectories,
	}
}

// Batch is the csbuild front-end policy: all five operations and user
// switching are permitted, command directories prefer the caller's cwd
// (then the login directories), and CSBUILD_* environment variables are
// added on top of the usual SCHROOT_* set. The policy itself does not
// turn a bare run into a session; cmd/csbuild does that.
func Batch() Policy {
	return Policy{
		Name:            "csbuild",
		AllowSessionOps: true,
		AllowUserSwitch: true,
		Directories:     CommandDirectories,
		ExtraEnv: func(opts Options) []string {
			env := []string{"CSBUILD=1"}
			if len(opts.Command) > 0 {
				env = append(env, "CSBUILD_COMMAND="+opts.Command[0])
			}
			return env
		},
	}
}

// resolveChrootName applies AliasOnly resolution if requested,
// otherwise defers straight to the store's own name/alias lookup.
func resolveChrootName(p Policy, store *config.Store, name string) (string, error) {
	if !p.AliasOnly {
		if _, ok := store.Chroot(name); !ok {
			return "", fmt.Errorf("chroot %q: %w", name, errdefs.ErrNotFound)
		}
		return name, nil
	}

	for _, c := range store.All() {
		for _, alias := range c.Aliases {
			if alias == name {
				return c.Name, nil
			}
		}
	}
	return "", fmt.Errorf("alias %q: %w", name, errdefs.ErrNotFound)
}

// BuildRequest turns opts into a session.Request under policy p,
// resolving the chroot name, enforcing the user-switch and
// session-operation restrictions, and computing the directory
// candidate list. store is consulted to resolve the chroot name (by
// alias only under AliasOnly, by name or alias otherwise).
func BuildRequest(p Policy, store *config.Store, opts Options) (*session.Request, error) {
	op, err := opts.resolveOperation(p)
	if err != nil {
		return nil, err
	}

	req := &session.Request{
		Operation:     op,
		SessionID:     opts.SessionName,
		CallingUser:   opts.CallingUser,
		RequestedUser: opts.User,
		Root:          opts.User == "root" || opts.User == "",
		Command:       opts.Command,
	}

	if len(opts.ChrootNames) > 0 {
		name, err := resolveChrootName(p, store, opts.ChrootNames[0])
		if err != nil {
			return nil, err
		}
		req.ChrootName = name
	}

	if !p.AllowUserSwitch && opts.User != "" && opts.User != opts.CallingUser {
		return nil, fmt.Errorf("%s: user switch to %q: %w", p.Name, opts.User, errdefs.ErrPermissionDenied)
	}
	if opts.User != "" {
		req.RequestedUser = opts.User
		req.Root = opts.User == "root"
	} else {
		req.RequestedUser = opts.CallingUser
		req.Root = opts.CallingUser == "root"
	}

	req.DirectoryCandidates = directoryCandidates(p, opts)
	if p.ExtraEnv != nil {
		req.ExtraEnv = p.ExtraEnv(opts)
	}

	return req, nil
}
