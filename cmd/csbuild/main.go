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

// Command csbuild is the batch build front-end: a bare invocation
// never runs a transient command the way "chroot -c sid sh" does.
// Instead it always begins a session, runs the command in it, and ends
// the session afterwards, so a long package-build pipeline driving many
// sub-builds against the same chroot definition still gets exactly one
// mount/unmount cycle per build rather than per shell invocation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/basuotian/chroots/errorkind"
	"github.com/basuotian/chroots/frontend"
	"github.com/basuotian/chroots/session"
)

func main() {
	policy := frontend.Batch()

	app := &cli.App{
		Name:  policy.Name,
		Usage: "batch build front-end: always runs against a session",
		Flags: frontend.Flags(),
		Action: func(c *cli.Context) error {
			return runApp(c, policy)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorkind.Line(policy.Name, err))
		os.Exit(1)
	}
}

func runApp(c *cli.Context, policy frontend.Policy) error {
	opts, err := frontend.FromContext(c)
	if err != nil {
		return err
	}
	frontend.ConfigureLogging(opts)

	env, err := frontend.Load(c.String("config-file"))
	if err != nil {
		return err
	}

	ctx := context.Background()

	var exitCode int
	if opts.Verb == frontend.VerbRun && opts.SessionName == "" {
		exitCode, err = runBatch(ctx, env, policy, opts)
	} else {
		exitCode, err = frontend.Execute(ctx, policy, env, opts, os.Stdout)
	}
	if err != nil {
		return err
	}
	os.Exit(exitCode)
	return nil
}

// runBatch drives the begin -> run-session -> end sequence a bare
// csbuild invocation always performs, ending the session even if the
// command itself failed so a batch of sub-builds never leaks a mount.
func runBatch(ctx context.Context, env *frontend.Env, policy frontend.Policy, opts frontend.Options) (int, error) {
	req, err := frontend.BuildRequest(policy, env.Store, opts)
	if err != nil {
		return 1, err
	}

	beginReq := *req
	beginReq.Operation = session.OpBegin
	begun, err := env.Engine.Run(ctx, &beginReq)
	if err != nil {
		return 1, fmt.Errorf("beginning build session: %w", err)
	}

	defer func() {
		endReq := session.Request{Operation: session.OpEnd, SessionID: begun.SessionID}
		if _, endErr := env.Engine.Run(ctx, &endReq); endErr != nil {
			fmt.Fprintln(os.Stderr, errorkind.Line(policy.Name, endErr))
		}
	}()

	runReq := *req
	runReq.Operation = session.OpRunSession
	runReq.SessionID = begun.SessionID

	result, err := env.Engine.Run(ctx, &runReq)
	if err != nil {
		return 1, err
	}
	return result.ExitCode, nil
}
