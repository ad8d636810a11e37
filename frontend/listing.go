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
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/docker/go-units"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/chroot/facet"
	"github.com/basuotian/chroots/config"
	"github.com/basuotian/chroots/internal/keyfile"
)

// List renders one chroot name per line according to mode: ListAll
// lists every configured chroot, ListSessions lists names of persisted
// sessions (one per file in the sessions directory, read from
// sessionNames), ListSource lists the read-write source-branch name of
// every snapshot-backed chroot, and ListDefault is equivalent to
// ListAll (schroot's own default with no qualifier).
func List(store *config.Store, mode ListMode, sessionNames []string) string {
	var out []string
	switch mode {
	case ListSessions:
		out = append(out, sessionNames...)
	case ListSource:
		for _, c := range store.All() {
			if _, err := c.CloneSource(); err == nil {
				out = append(out, c.Name+"-source")
			}
		}
	default:
		out = store.Names()
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}

// Config renders the machine-parseable keyfile dump of every named
// chroot (or every chroot if names is empty), the --config verb.
func Config(store *config.Store, names []string) (string, error) {
	targets, err := resolveNames(store, names)
	if err != nil {
		return "", err
	}

	kf := keyfile.New()
	for _, c := range targets {
		c.GetKeyfile(kf)
	}

	var buf bytes.Buffer
	if err := kf.Write(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Info renders the human-readable --info summary of every named
// chroot (or every chroot if names is empty): description, type,
// location, and, for lvm-snapshot, a go-units-formatted size.
func Info(store *config.Store, names []string) (string, error) {
	targets, err := resolveNames(store, names)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for i, c := range targets {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%-20s %s\n", "Name", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&buf, "%-20s %s\n", "Description", c.Description)
		}
		sf, err := c.Storage()
		if err != nil {
			continue
		}
		fmt.Fprintf(&buf, "%-20s %s\n", "Type", sf.Name())
		fmt.Fprintf(&buf, "%-20s %s\n", "Path", sf.GetPath(c))
		if lv, ok := sf.(*facet.LVMSnapshot); ok && lv.SnapshotSize != "" {
			if bytesSize, err := units.FromHumanSize(lv.SnapshotSize); err == nil {
				fmt.Fprintf(&buf, "%-20s %s\n", "Snapshot size", units.BytesSize(float64(bytesSize)))
			} else {
				fmt.Fprintf(&buf, "%-20s %s\n", "Snapshot size", lv.SnapshotSize)
			}
		}
	}
	return buf.String(), nil
}

// Location renders the single mount-location line of one chroot, the
// --location verb (always exactly one chroot argument).
func Location(c *chroot.Chroot, mountLocation string) string {
	return mountLocation
}

func resolveNames(store *config.Store, names []string) ([]*chroot.Chroot, error) {
	if len(names) == 0 {
		return store.All(), nil
	}
	out := make([]*chroot.Chroot, 0, len(names))
	for _, n := range names {
		c, ok := store.Chroot(n)
		if !ok {
			return nil, fmt.Errorf("chroot %q not found", n)
		}
		out = append(out, c)
	}
	return out, nil
}
