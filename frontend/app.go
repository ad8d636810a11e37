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
	"context"
	"fmt"
	"io"

	"github.com/basuotian/chroots/auth"
	"github.com/basuotian/chroots/config"
	"github.com/basuotian/chroots/session"
)

const defaultEngineConfigPath = "/etc/chroots/chroots.toml"

// Env bundles everything Execute needs beyond the parsed Options: the
// loaded chroot definitions, a ready engine, and the writer command
// output goes to (os.Stdout in every real binary, a buffer in tests).
type Env struct {
	Store  *config.Store
	Engine *session.Engine
	Out    io.Writer
}

// Load builds an Env for policy p: reads the engine's own TOML
// configuration (falling back to defaults if configPath is unset or
// missing), loads every chroot definition from the resulting
// chroots-directory, and wires a PAM-or-null auth adapter the same way
// every front-end does.
func Load(configPath string) (*Env, error) {
	if configPath == "" {
		configPath = defaultEngineConfigPath
	}

	cfg, err := config.LoadEngineConfig(configPath)
	if err != nil {
		return nil, err
	}

	store, err := config.LoadDirectory(cfg.ChrootsDirectory)
	if err != nil {
		return nil, err
	}

	eng := session.New(cfg, store, auth.New())
	return &Env{Store: store, Engine: eng}, nil
}

// Execute runs the single-verb front-ends (everything but csbuild's
// multi-step batch orchestration, see cmd/csbuild): list/info/config/
// location are answered directly against env.Store, everything else
// becomes one session.Request driven through env.Engine.
func Execute(ctx context.Context, p Policy, env *Env, opts Options, out io.Writer) (int, error) {
	switch opts.Verb {
	case VerbList:
		if opts.Watch && opts.ListMode == ListSessions {
			updates, err := session.WatchSessions(ctx, env.Engine.Config.SessionsDirectory)
			if err != nil {
				return 1, err
			}
			sessionNames, ok := <-updates
			if !ok {
				return 1, fmt.Errorf("sessions directory watch ended unexpectedly")
			}
			fmt.Fprintln(out, List(env.Store, opts.ListMode, sessionNames))
			return 0, nil
		}

		sessionNames, err := session.ListSessions(env.Engine.Config.SessionsDirectory)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(out, List(env.Store, opts.ListMode, sessionNames))
		return 0, nil

	case VerbInfo:
		text, err := Info(env.Store, opts.ChrootNames)
		if err != nil {
			return 1, err
		}
		fmt.Fprint(out, text)
		return 0, nil

	case VerbConfig:
		text, err := Config(env.Store, opts.ChrootNames)
		if err != nil {
			return 1, err
		}
		fmt.Fprint(out, text)
		return 0, nil

	case VerbLocation:
		if len(opts.ChrootNames) != 1 {
			return 1, fmt.Errorf("--location takes exactly one chroot")
		}
		c, ok := env.Store.Chroot(opts.ChrootNames[0])
		if !ok {
			return 1, fmt.Errorf("chroot %q not found", opts.ChrootNames[0])
		}
		loc, err := env.Engine.MountLocation(c)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(out, Location(c, loc))
		return 0, nil

	default:
		req, err := BuildRequest(p, env.Store, opts)
		if err != nil {
			return 1, err
		}
		result, err := env.Engine.Run(ctx, req)
		if err != nil {
			return 1, err
		}
		return result.ExitCode, nil
	}
}
