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
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/containerd/log"
	mobysignal "github.com/moby/sys/signal"
)

// signalNames is the reverse of moby/sys/signal's name-to-number table,
// used only to render a readable name in the teardown-coalescing log
// line below.
var signalNames = buildSignalNames()

func buildSignalNames() map[syscall.Signal]string {
	out := make(map[syscall.Signal]string, len(mobysignal.SignalMap))
	for name, s := range mobysignal.SignalMap {
		out[s] = name
	}
	return out
}

func signalName(s syscall.Signal) string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return s.String()
}

// signalForwarder relays SIGINT/SIGTERM/SIGHUP to a running child
// process for the lifetime of one command. Once teardown begins, a
// received signal is logged but not acted on: the command has already
// finished, and the resources being released need to run to
// completion rather than be interrupted half-way.
type signalForwarder struct {
	ch      chan os.Signal
	done    chan struct{}
	winding atomic.Bool
}

func newSignalForwarder() *signalForwarder {
	f := &signalForwarder{
		ch:   make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(f.ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	return f
}

// run forwards every signal received to proc until beginTeardown is
// called, after which further signals are logged and dropped. It
// returns once stop is called.
func (f *signalForwarder) run(ctx context.Context, proc *os.Process) {
	for {
		select {
		case sig, ok := <-f.ch:
			if !ok {
				return
			}
			sysSig, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			if f.winding.Load() {
				log.G(ctx).WithField("signal", signalName(sysSig)).Warn("signal received during teardown, not forwarded")
				continue
			}
			if proc != nil {
				if err := proc.Signal(sysSig); err != nil {
					log.G(ctx).WithError(err).WithField("signal", signalName(sysSig)).Warn("failed to forward signal to child")
				}
			}
		case <-f.done:
			return
		}
	}
}

// beginTeardown switches the forwarder from relay mode to log-only
// mode, called once the child has exited and resource teardown starts.
func (f *signalForwarder) beginTeardown() {
	f.winding.Store(true)
}

// stop ends signal relaying and restores the default disposition.
func (f *signalForwarder) stop() {
	signal.Stop(f.ch)
	close(f.done)
}
