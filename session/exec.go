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

package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/moby/sys/user"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/opencontainers/selinux/go-selinux"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/personality"
	"github.com/basuotian/chroots/internal/util"
)

// credential resolves RequestedUser to the uid/gid/supplementary-group
// set execProcess needs to drop into, using moby/sys/user's cgo-free
// passwd/group parsing rather than the stdlib os/user package (which
// shells out to nsswitch via cgo on most distros).
func credential(requestedUser string) (*syscall.Credential, string, error) {
	u, err := user.LookupUser(requestedUser)
	if err != nil {
		return nil, "", fmt.Errorf("looking up user %q: %w", requestedUser, err)
	}

	groupFile, err := os.Open("/etc/group")
	if err != nil {
		return nil, "", fmt.Errorf("opening /etc/group: %w", err)
	}
	defer groupFile.Close()

	groups, err := user.ParseGroupFilter(groupFile, func(g user.Group) bool {
		if g.Gid == u.Gid {
			return true
		}
		for _, member := range g.List {
			if member == u.Name {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, "", fmt.Errorf("resolving supplementary groups for %q: %w", requestedUser, err)
	}

	gids := make([]uint32, 0, len(groups))
	seen := make(map[int]bool, len(groups))
	for _, g := range groups {
		if !seen[g.Gid] {
			seen[g.Gid] = true
			gids = append(gids, uint32(g.Gid))
		}
	}

	return &syscall.Credential{
		Uid:    uint32(u.Uid),
		Gid:    uint32(u.Gid),
		Groups: gids,
	}, u.Home, nil
}

// buildEnv composes the child process's environment: the calling
// process's own environment filtered through the chroot's
// environment-filter regex, then the SCHROOT_CHROOT_NAME/SCHROOT_USER
// identity variables (and HOME when known), then every attached
// facet's SetupEnv contribution, then req.ExtraEnv; each later step
// overrides an earlier one on a name collision.
func buildEnv(c *chroot.Chroot, req *Request, requestedHome string) []string {
	env := util.NewEnvironment(os.Environ())
	env.Filter(c.EnvironmentFilter())

	env.Set("SCHROOT_CHROOT_NAME", c.Name)
	env.Set("SCHROOT_USER", req.RequestedUser)
	if requestedHome != "" {
		env.Set("HOME", requestedHome)
	}

	c.SetupEnv(env)

	for _, kv := range req.ExtraEnv {
		if name, value, ok := strings.Cut(kv, "="); ok {
			env.Set(name, value)
		}
	}

	return env.Strings()
}

// commandLine prepends the chroot's configured command prefix (e.g. a
// wrapper script sbuild-style front-ends install) to the requested
// command, falling back to the chroot's configured default shell when
// no command was given.
func commandLine(c *chroot.Chroot, requested []string) ([]string, error) {
	cmd := requested
	if len(cmd) == 0 {
		cmd = c.DefaultCommand
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("no command given and chroot %q has no default-shell configured", c.Name)
	}
	if len(c.CommandPrefix) > 0 {
		full := make([]string, 0, len(c.CommandPrefix)+len(cmd))
		full = append(full, c.CommandPrefix...)
		full = append(full, cmd...)
		cmd = full
	}
	return cmd, nil
}

// ProcessSpec renders the command an invocation of execProcess would
// run as an OCI runtime-spec Process, a shape suited to
// machine-readable dumps; no front-end calls it. The uid/gid fields are left
// zero for a root request, matching the "no drop" case.
func ProcessSpec(c *chroot.Chroot, req *Request, dir string) (*specs.Process, error) {
	cmd, err := commandLine(c, req.Command)
	if err != nil {
		return nil, err
	}
	proc := &specs.Process{
		Args: cmd,
		Cwd:  dir,
		Env:  buildEnv(c, req, ""),
	}
	if !req.Root {
		cred, _, err := credential(req.RequestedUser)
		if err != nil {
			return nil, err
		}
		proc.User = specs.User{UID: cred.Uid, GID: cred.Gid}
	}
	return proc, nil
}

// execProcess runs the requested command inside the mounted chroot at
// root, dropping to the requested user's credentials unless Root was
// granted, applying the chroot's personality domain, and waiting for
// completion. onStart, if non-nil, is invoked with the running child's
// *os.Process as soon as it has been started, so a caller can forward
// signals to it for the duration of the run.
func execProcess(ctx context.Context, c *chroot.Chroot, req *Request, root, dir string, onStart func(*os.Process)) (int, error) {
	cmd, err := commandLine(c, req.Command)
	if err != nil {
		return -1, err
	}

	var cred *syscall.Credential
	var home string
	if !req.Root {
		cred, home, err = credential(req.RequestedUser)
		if err != nil {
			return -1, err
		}
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if _, ok := c.Persona.Value(); ok {
		if err := personality.Set(c.Persona); err != nil {
			return -1, fmt.Errorf("setting personality %q: %w", c.Persona.Name, err)
		}
	}

	if c.SELinuxContext != "" {
		// SetExecLabel applies to the next exec on this OS thread only,
		// which is why the LockOSThread above has to stay held until
		// execCmd.Start below actually forks+execs on this thread.
		if err := selinux.SetExecLabel(c.SELinuxContext); err != nil {
			return -1, fmt.Errorf("setting SELinux exec label %q: %w", c.SELinuxContext, err)
		}
	}

	execCmd := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	execCmd.Dir = dir
	execCmd.Env = buildEnv(c, req, home)
	execCmd.Stdin = os.Stdin
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.SysProcAttr = &syscall.SysProcAttr{
		Chroot:     root,
		Credential: cred,
	}

	if err := execCmd.Start(); err != nil {
		return -1, fmt.Errorf("starting command in chroot %q: %w", c.Name, err)
	}
	if onStart != nil {
		onStart(execCmd.Process)
	}

	if err := execCmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("running command in chroot %q: %w", c.Name, err)
	}
	return 0, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}
