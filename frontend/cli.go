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
	"syscall"

	mobyuser "github.com/moby/sys/user"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// ConfigureLogging sets the formatter and level of the logrus backend
// github.com/containerd/log's global logger writes through, the same
// way every teacher binary configures logging once at startup before
// touching anything else: quiet and verbose are mutually exclusive,
// verbose winning if both are somehow set.
func ConfigureLogging(opts Options) {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	switch {
	case opts.Verbose:
		logrus.SetLevel(logrus.DebugLevel)
	case opts.Quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Flags returns the CLI surface common to every front-end binary, the
// way cmd/ctr/app/main.go assembles its own flag set once and shares
// it across subcommands. Front-ends differ only in which of these a
// given Policy honours; unsupported verbs are rejected once
// Options.resolveOperation runs, not here, so "--begin-session" still
// shows up in dchroot's --help (matching the original's own behaviour
// of listing, then rejecting, unsupported options).
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "list", Usage: "list chroots: all (default), sessions, or source", DefaultText: "all"},
		&cli.BoolFlag{Name: "watch", Usage: "with --list=sessions, block until the session set changes instead of listing once"},
		&cli.BoolFlag{Name: "info", Usage: "print detailed information about chroots"},
		&cli.BoolFlag{Name: "config", Usage: "print machine-parseable chroot configuration"},
		&cli.BoolFlag{Name: "location", Usage: "print a chroot's mount location"},
		&cli.BoolFlag{Name: "run-session", Usage: "run a command in an existing session"},
		&cli.BoolFlag{Name: "begin-session", Usage: "create and persist a new session"},
		&cli.BoolFlag{Name: "recover-session", Usage: "re-attach to a session whose mount was lost"},
		&cli.BoolFlag{Name: "end-session", Usage: "end and purge a session"},
		&cli.StringSliceFlag{Name: "chroot", Aliases: []string{"c"}, Usage: "chroot to operate on (repeatable)"},
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "run as this user"},
		&cli.StringFlag{Name: "directory", Aliases: []string{"d"}, Usage: "chdir to this directory before running the command"},
		&cli.BoolFlag{Name: "preserve-environment", Aliases: []string{"p"}, Usage: "preserve the calling user's environment"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress informational messages"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print additional diagnostic messages"},
		&cli.StringFlag{Name: "session-name", Aliases: []string{"n"}, Usage: "name of the session to operate on"},
		&cli.StringFlag{Name: "config-file", Usage: "path to the engine's own TOML configuration file"},
	}
}

// FromContext builds Options from a parsed *cli.Context, selecting the
// active Verb from whichever of the mutually exclusive boolean flags
// was set (first match wins, in the order they're checked below,
// matching schroot-base-options.h's own precedence).
func FromContext(c *cli.Context) (Options, error) {
	opts := Options{
		ChrootNames: c.StringSlice("chroot"),
		SessionName: c.String("session-name"),
		User:        c.String("user"),
		Directory:   c.String("directory"),
		PreserveEnv: c.Bool("preserve-environment"),
		Quiet:       c.Bool("quiet"),
		Verbose:     c.Bool("verbose"),
		Watch:       c.Bool("watch"),
		Command:     c.Args().Slice(),
	}

	callingUser, err := mobyuser.LookupUid(syscall.Getuid())
	if err != nil {
		return opts, fmt.Errorf("determining calling user: %w", err)
	}
	opts.CallingUser = callingUser.Name

	switch {
	case c.IsSet("list"):
		opts.Verb = VerbList
		switch c.String("list") {
		case "", "all":
			opts.ListMode = ListAll
		case "sessions":
			opts.ListMode = ListSessions
		case "source":
			opts.ListMode = ListSource
		default:
			return opts, fmt.Errorf("--list: unknown mode %q", c.String("list"))
		}
	case c.Bool("info"):
		opts.Verb = VerbInfo
	case c.Bool("config"):
		opts.Verb = VerbConfig
	case c.Bool("location"):
		opts.Verb = VerbLocation
	case c.Bool("run-session"):
		opts.Verb = VerbRunSession
	case c.Bool("begin-session"):
		opts.Verb = VerbBeginSession
	case c.Bool("recover-session"):
		opts.Verb = VerbRecoverSession
	case c.Bool("end-session"):
		opts.Verb = VerbEndSession
	default:
		opts.Verb = VerbRun
		if len(opts.ChrootNames) == 0 && len(opts.Command) > 0 {
			opts.ChrootNames = opts.Command[:1]
			opts.Command = opts.Command[1:]
		}
	}

	return opts, nil
}
