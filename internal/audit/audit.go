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

// Package audit records AUTHORISATION failures (spec error kind
// §4.3) to whichever log sink the host actually has: the systemd
// journal when running under systemd, falling back to the classic
// syslog AUTH facility everywhere else. Neither sink failing to accept
// the message ever blocks the caller -- an unrecorded audit entry is
// not a reason to deny or delay a chroot request that PAM/the null
// adapter already decided on.
package audit

import (
	"fmt"
	"log/syslog"
	"sync"

	"github.com/coreos/go-systemd/v22/journal"

	"github.com/containerd/log"
)

var (
	initOnce   sync.Once
	syslogger  *syslog.Writer
	useJournal bool
)

func ensureInit() {
	initOnce.Do(func() {
		if journal.Enabled() {
			useJournal = true
			return
		}
		w, err := syslog.New(syslog.LOG_AUTH|syslog.LOG_NOTICE, "chroots")
		if err != nil {
			log.L.WithError(err).Debug("audit: no journal and no syslog available, audit entries will only reach the process log")
			return
		}
		syslogger = w
	})
}

// Authorisation records a single AUTHORISATION failure: chrootName is
// the chroot being entered, callingUser the real pre-drop caller, and
// reason the human-readable cause already formatted by errorkind.
func Authorisation(chrootName, callingUser, reason string) {
	ensureInit()

	msg := fmt.Sprintf("AUTHORISATION(%s): %s: %s", chrootName, callingUser, reason)

	switch {
	case useJournal:
		fields := map[string]string{
			"CHROOT_NAME":  chrootName,
			"CALLING_USER": callingUser,
		}
		if err := journal.Send(msg, journal.PriNotice, fields); err != nil {
			log.L.WithError(err).Warn("audit: failed writing to the systemd journal")
		}
	case syslogger != nil:
		if err := syslogger.Notice(msg); err != nil {
			log.L.WithError(err).Warn("audit: failed writing to syslog")
		}
	default:
		log.L.Warn(msg)
	}
}
