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

package frontend

import (
	"fmt"
	"os"

	"github.com/containerd/errdefs"
	mobyuser "github.com/moby/sys/user"

	"github.com/basuotian/chroots/session"
)

// Verb names one of the normalised CLI verbs from spec.md §6. Exactly
// one verb is active per invocation; front-ends map their own flags
// onto this set before calling BuildRequest.
type Verb int

const (
	VerbRun Verb = iota
	VerbList
	VerbInfo
	VerbConfig
	VerbLocation
	VerbRunSession
	VerbBeginSession
	VerbRecoverSession
	VerbEndSession
)

// ListMode distinguishes the three --list variants.
type ListMode int

const (
	ListDefault ListMode = iota
	ListAll
	ListSessions
	ListSource
)

// Options is the parsed, front-end-neutral form of the CLI surface
// every binary in cmd/ exposes; each cmd/*/main.go fills one of these
// from its urfave/cli.Context and hands it to BuildRequest or the
// listing/info helpers.
type Options struct {
	Verb     Verb
	ListMode ListMode

	ChrootNames []string
	SessionName string

	CallingUser string
	User        string
	Directory   string
	PreserveEnv bool
	Quiet       bool
	Verbose     bool
	Watch       bool

	Command []string
}

// resolveOperation maps o.Verb to a session.Operation, rejecting verbs
// p forbids (dchroot's session-lifecycle restriction) before the
// engine ever sees the request.
func (o Options) resolveOperation(p Policy) (session.Operation, error) {
	switch o.Verb {
	case VerbRun, VerbRunSession:
		if o.SessionName != "" {
			return session.OpRunSession, nil
		}
		return session.OpRun, nil
	case VerbBeginSession:
		if !p.AllowSessionOps {
			return 0, fmt.Errorf("%s: --begin-session: %w", p.Name, errdefs.ErrNotImplemented)
		}
		return session.OpBegin, nil
	case VerbRecoverSession:
		if !p.AllowSessionOps {
			return 0, fmt.Errorf("%s: --recover-session: %w", p.Name, errdefs.ErrNotImplemented)
		}
		return session.OpRecover, nil
	case VerbEndSession:
		if !p.AllowSessionOps {
			return 0, fmt.Errorf("%s: --end-session: %w", p.Name, errdefs.ErrNotImplemented)
		}
		return session.OpEnd, nil
	default:
		return 0, fmt.Errorf("%s: %w", p.Name, errdefs.ErrInvalidArgument)
	}
}

// directoryCandidates builds the ordered chdir search list for opts
// under p: an explicit -d/--directory always wins outright; otherwise
// CommandDirectories tries the caller's cwd before falling back to the
// LoginDirectories search (the target user's home, then "/", which the
// engine's own commandDirectory already applies as its last resort).
func directoryCandidates(p Policy, opts Options) []string {
	if opts.Directory != "" {
		return []string{opts.Directory}
	}

	var candidates []string
	if p.Directories == CommandDirectories {
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, cwd)
		}
	}

	target := opts.User
	if target == "" {
		target = opts.CallingUser
	}
	if home, err := lookupHome(target); err == nil && home != "" {
		candidates = append(candidates, home)
	}
	return candidates
}

// lookupHome resolves username's home directory via /etc/passwd,
// avoiding the stdlib os/user package's cgo/nsswitch dependency, the
// same lookup the engine's own privilege-drop step uses.
func lookupHome(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("empty username")
	}
	u, err := mobyuser.LookupUser(username)
	if err != nil {
		return "", err
	}
	return u.Home, nil
}
