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

// Package lock implements the advisory, timeout-bounded file locking
// the session engine takes on a chroot's storage source (a device
// node, a backing file, an LVM logical volume) while it is mounted.
// The timeout-then-fail shape mirrors bbolt's own Options.Timeout
// handling of its flock(2) (see plugins/metadata in the containerd
// tree this package was adapted from): poll a non-blocking flock at a
// fixed interval until it succeeds or the deadline passes.
package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/containerd/errdefs"
	"golang.org/x/sys/unix"
)

// DefaultTimeout is the default duration a caller waits to acquire a
// storage lock before the engine raises a LOCK error.
const DefaultTimeout = 15 * time.Second

const pollInterval = 50 * time.Millisecond

// Lock is a held advisory lock on a single path, releasable exactly
// once.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive advisory lock on path, retrying until ctx
// is done or timeout elapses. path must already exist; Acquire opens
// it read-only and never creates it.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening lock target %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}

		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("timed out waiting for lock on %s: %w", path, errdefs.ErrUnavailable)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release drops the lock and closes the underlying file descriptor.
// Safe to call at most once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return cerr
}
