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

package identifiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("foobar"))
	assert.Error(t, Validate(":fail:"))
	assert.Error(t, Validate(""))
	assert.Error(t, Validate(".hidden"))
	assert.Error(t, Validate("has/slash"))
	assert.Error(t, Validate("has,comma"))
}

func TestValidateStrict(t *testing.T) {
	assert.NoError(t, ValidateStrict("sid-unstable"))
	assert.Error(t, ValidateStrict("_starts_with_underscore"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("abcdef0123456789"))
	assert.Error(t, ValidateSessionID("not valid!"))
}
