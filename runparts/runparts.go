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

// Package runparts executes every script in a directory, in sorted
// order, stopping at the first failure -- the mechanism the session
// engine uses to run setup-start/setup-stop/setup-recover scripts at
// its state transitions.
package runparts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/containerd/log"

	"github.com/basuotian/chroots/internal/util"
)

// validName matches run-parts(8)'s own entry-name restriction: letters,
// digits, underscore and hyphen only. A stray editor backup
// ("10-setup~") or a dotted name ("10-setup.rpmsave") is skipped, not run.
var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Kind identifies which stage of the session lifecycle a run-parts
// directory is invoked for; it is passed to scripts as CHROOT_SCRIPT.
type Kind string

const (
	SetupStart   Kind = "setup-start"
	SetupRecover Kind = "setup-recover"
	SetupStop    Kind = "setup-stop"
)

// Runner executes every entry in Directory, in lexicographic order,
// passing Env plus CHROOT_SCRIPT (the stage name) to each.
type Runner struct {
	Directory string
	Verbose   bool

	// Capture, when set, pipes each script's stdout/stderr through a
	// named pipe instead of the parent's fds, so a failure's output
	// can be folded into the returned error. Off unless the caller sets
	// it (New and the session engine leave it unset); never used for
	// the interactive command itself.
	Capture bool
}

// New returns a Runner over directory. A missing directory is not an
// error: it means no scripts are configured for this stage.
func New(directory string) *Runner {
	return &Runner{Directory: directory}
}

// Run executes every regular, executable file directly under r.Directory,
// in sorted order, passing kind and env to each. It stops and returns
// the first non-zero exit as an error; scripts that ran before the
// failing one are not undone (the caller decides whether the lifecycle
// state machine rolls back further).
func (r *Runner) Run(ctx context.Context, kind Kind, env *util.Environment) error {
	entries, err := os.ReadDir(r.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading run-parts directory %s: %w", r.Directory, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !validName.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	scriptEnv := util.NewEnvironment(env.Strings())
	scriptEnv.Set("CHROOT_SCRIPT", string(kind))

	for _, name := range names {
		path := filepath.Join(r.Directory, name)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Mode()&0o111 == 0 {
			log.G(ctx).WithField("script", path).Debug("skipping non-executable run-parts entry")
			continue
		}

		if r.Verbose {
			log.G(ctx).WithField("script", path).WithField("stage", string(kind)).Info("running setup script")
		}

		cmd := exec.CommandContext(ctx, path)
		cmd.Env = scriptEnv.Strings()
		cmd.Stdin = os.Stdin

		if !r.Capture {
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("setup script %s failed: %w", path, err)
			}
			continue
		}

		capture, err := newOutputCapture(ctx, r.Directory)
		if err != nil {
			return err
		}
		cmd.Stdout = capture.Writer()
		cmd.Stderr = capture.Writer()

		runErr := cmd.Run()
		output, closeErr := capture.Close()
		if runErr != nil {
			return fmt.Errorf("setup script %s failed: %w\n%s", path, runErr, output)
		}
		if closeErr != nil {
			return fmt.Errorf("draining output of %s: %w", path, closeErr)
		}
	}

	return nil
}
