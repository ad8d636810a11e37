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

// Command releaselock force-drops the advisory lock internal/lock
// takes on a storage source, for an operator recovering a chroot whose
// owning process died without releasing it (internal/lock's own
// timeout already protects a live engine from such a holder; this tool
// is for the case where the administrator doesn't want to wait out the
// timeout).
package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "releaselock",
		Usage:     "force-release the advisory lock on a storage source",
		UsageText: "releaselock <path>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "releaselock:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("releasing lock on %s: %w", path, err)
	}
	return nil
}
