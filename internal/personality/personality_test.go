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

package personality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnown(t *testing.T) {
	p, err := Resolve("linux32")
	require.NoError(t, err)
	assert.Equal(t, "linux32", p.String())
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("bogus")
	assert.Error(t, err)
}

func TestResolveEmpty(t *testing.T) {
	p, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "undefined", p.String())
	_, ok := p.Value()
	assert.False(t, ok)
}
