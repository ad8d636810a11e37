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

package chroot

import (
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/util"
)

// FacetSession is the registry name of the session facet, attached
// only to live sessions (never to the chroot definitions loaded from
// configuration).
const FacetSession = "session"

// SessionFacet carries the bookkeeping specific to a live session
// instance: which chroot it was cloned from, who cloned it, and
// whether it was cloned as root.
type SessionFacet struct {
	SessionID    string
	OriginalName string
	SelectedName string // the alias used to select the chroot, if any
	CloningUser  string
	Root         bool
	MountDevice  string
	Purged       bool
}

// NewSessionFacet returns a session facet for a freshly created
// session.
func NewSessionFacet(sessionID, originalName, selectedName, user string, root bool) *SessionFacet {
	return &SessionFacet{
		SessionID:    sessionID,
		OriginalName: originalName,
		SelectedName: selectedName,
		CloningUser:  user,
		Root:         root,
	}
}

func (f *SessionFacet) Name() string { return FacetSession }

func (f *SessionFacet) Clone() Facet {
	clone := *f
	return &clone
}

func (f *SessionFacet) SetupEnv(c *Chroot, env *util.Environment) {
	env.Set("SCHROOT_SESSION_ID", f.SessionID)
}

func (f *SessionFacet) SessionFlags(c *Chroot) SessionFlags {
	return SessionPurge
}

func (f *SessionFacet) UsedKeys() []string {
	return []string{"original-name", "selected-name", "session-purged", "mount-device"}
}

func (f *SessionFacet) GetKeyfile(c *Chroot, section *keyfile.Section) {
	section.SetString("original-name", f.OriginalName)
	if f.SelectedName != "" {
		section.SetString("selected-name", f.SelectedName)
	}
	section.SetBool("session-purged", f.Purged)
	if f.MountDevice != "" {
		section.SetString("mount-device", f.MountDevice)
	}
}

func (f *SessionFacet) SetKeyfile(c *Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("original-name"); ok {
		f.OriginalName = v
	}
	if v, ok := section.GetString("selected-name"); ok {
		f.SelectedName = v
	}
	if v, ok, err := section.GetBool("session-purged"); err != nil {
		return err
	} else if ok {
		f.Purged = v
	}
	if v, ok := section.GetString("mount-device"); ok {
		f.MountDevice = v
	}
	return nil
}
