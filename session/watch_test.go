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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchSessionsReportsNewSession(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := WatchSessions(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, save(dir, "abc123", newPlainChroot(t, "sid")))

	select {
	case ids := <-updates:
		assert.Contains(t, ids, "abc123")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a session-directory change notification")
	}
}

func TestWatchSessionsClosesOnCancel(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := WatchSessions(ctx, dir)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the watch channel to close after cancellation")
	}
}
