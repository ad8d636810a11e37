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

//go:build unix

package runparts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/containerd/fifo"
	"golang.org/x/sys/unix"
)

// outputCapture plumbs a script's stdout/stderr through a named pipe
// instead of passing the parent's fds straight through, so a failing
// non-interactive setup script's output can be folded into the error
// surfaced to the caller instead of only ever appearing on the
// terminal. Interactive stages (the user's own command) never go
// through this path; only setup/teardown scripts do.
type outputCapture struct {
	path string
	f    io.ReadWriteCloser
	buf  bytes.Buffer
	wg   sync.WaitGroup
}

func newOutputCapture(ctx context.Context, dir string) (*outputCapture, error) {
	path := filepath.Join(dir, fmt.Sprintf(".chroots-capture-%d", os.Getpid()))
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("creating capture fifo: %w", err)
	}

	f, err := fifo.OpenFifo(ctx, path, unix.O_RDWR|unix.O_NONBLOCK, 0o600)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("opening capture fifo: %w", err)
	}

	c := &outputCapture{path: path, f: f}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		io.Copy(&c.buf, f)
	}()
	return c, nil
}

// Writer returns the write-end writer scripts' stdout/stderr attach to.
func (c *outputCapture) Writer() io.Writer { return c.f }

// Close stops the drain goroutine and removes the backing fifo,
// returning everything captured.
func (c *outputCapture) Close() (string, error) {
	err := c.f.Close()
	c.wg.Wait()
	os.Remove(c.path)
	return c.buf.String(), err
}
