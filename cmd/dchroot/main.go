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

// Command dchroot is the compatibility front-end: chroots are named by
// alias only (first configured chroot declaring that alias wins), no
// user switching, no session-lifecycle verbs, and the command always
// runs from the target's login directory rather than the caller's cwd.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/basuotian/chroots/errorkind"
	"github.com/basuotian/chroots/frontend"
)

func main() {
	policy := frontend.Compat()

	app := &cli.App{
		Name:  policy.Name,
		Usage: "dchroot-compatible chroot launcher",
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

	exitCode, err := frontend.Execute(context.Background(), policy, env, opts, os.Stdout)
	if err != nil {
		return err
	}
	os.Exit(exitCode)
	return nil
}
