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
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/config"
	"github.com/basuotian/chroots/internal/atomicfile"
	"github.com/basuotian/chroots/internal/keyfile"
)

// persistedPerm is deliberately not world-readable: session records can
// carry a calling user's name and, once mounted, a device path, and the
// sessions directory is root-owned on a live engine.
const persistedPerm = 0o600

// save atomically writes c (with its session facet already attached) to
// sessionsDir/id, so a concurrent reader never observes a half-written
// record and a crash mid-write leaves the previous record (if any)
// intact.
func save(sessionsDir, id string, c *chroot.Chroot) error {
	f, err := atomicfile.New(filepath.Join(sessionsDir, id), persistedPerm)
	if err != nil {
		return fmt.Errorf("persisting session %s: %w", id, err)
	}

	kf := keyfile.New()
	c.GetKeyfile(kf)
	if err := kf.Write(f); err != nil {
		f.Cancel()
		return fmt.Errorf("persisting session %s: %w", id, err)
	}
	return f.Close()
}

// load reads the persisted record for id back into a chroot, using
// config.BuildChroot so session records go through exactly the same
// type-dispatch and unused-key accounting as a chroot definition does.
func load(sessionsDir, id string) (*chroot.Chroot, error) {
	path := filepath.Join(sessionsDir, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	defer f.Close()

	kf, err := keyfile.Parse(path, f)
	if err != nil {
		return nil, err
	}

	sections := kf.Sections()
	if len(sections) != 1 {
		return nil, fmt.Errorf("session record %s: expected exactly one section, found %d", id, len(sections))
	}

	c, err := config.BuildChroot(sections[0], kf.Section(sections[0]))
	if err != nil {
		return nil, err
	}
	sf := chroot.NewSessionFacet(id, "", "", "", false)
	if err := sf.SetKeyfile(c, kf.Section(sections[0])); err != nil {
		return nil, fmt.Errorf("session record %s: %w", id, err)
	}
	c.SetFacet(sf)
	return c, nil
}

// purge removes the persisted record for id. Removing an
// already-removed record is not an error: OpEnd and a crashed previous
// teardown attempt must both be able to call this safely.
func purge(sessionsDir, id string) error {
	if err := os.Remove(filepath.Join(sessionsDir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("purging session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns every session id currently persisted under
// sessionsDir, sorted, skipping entries that fail to parse as keyfiles
// (a listing operation tolerates a corrupt record; recovering or
// ending it does not).
func ListSessions(sessionsDir string) ([]string, error) {
	return list(sessionsDir)
}

// list returns every session id currently persisted under sessionsDir,
// sorted, skipping entries that fail to parse as keyfiles (a listing
// operation tolerates a corrupt record; recovering or ending it does
// not).
func list(sessionsDir string) ([]string, error) {
	entries, err := os.ReadDir(sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions directory %s: %w", sessionsDir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, err := os.Open(filepath.Join(sessionsDir, e.Name()))
		if err != nil {
			continue
		}
		_, err = keyfile.Parse(e.Name(), f)
		f.Close()
		if err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
