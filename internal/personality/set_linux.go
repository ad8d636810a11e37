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

//go:build linux

package personality

import (
	"golang.org/x/sys/unix"

	"github.com/basuotian/chroots/internal/feature"
)

func init() {
	feature.Register(feature.Personality)
}

// Set applies p's execution domain to the calling thread via
// personality(2). It is a no-op for the default/unset persona.
func Set(p Persona) error {
	v, ok := p.Value()
	if !ok {
		return nil
	}
	_, err := unix.Personality(uint(v))
	return err
}
