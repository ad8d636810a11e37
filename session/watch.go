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
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// WatchSessions re-lists sessionsDir every time a session record is
// created, removed or renamed there, sending the refreshed listing on
// the returned channel. Used by --list=sessions' long-poll mode so a
// caller waiting on a batch build's session to appear or disappear
// doesn't need to busy-poll. The channel is closed and the watcher
// released when ctx is cancelled.
func WatchSessions(ctx context.Context, sessionsDir string) (<-chan []string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watching sessions directory %s: %w", sessionsDir, err)
	}
	if err := watcher.Add(sessionsDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching sessions directory %s: %w", sessionsDir, err)
	}

	out := make(chan []string)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				ids, err := list(sessionsDir)
				if err != nil {
					continue
				}
				select {
				case out <- ids:
				case <-ctx.Done():
					return
				}
			case <-watcher.Errors:
				// A watch error is ignored; the loop goes on waiting
				// for events and for ctx to be cancelled.
			}
		}
	}()
	return out, nil
}
