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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwindRunsReleasesLIFO(t *testing.T) {
	var order []int
	s := &Session{}
	s.pushRelease(func() error { order = append(order, 1); return nil })
	s.pushRelease(func() error { order = append(order, 2); return nil })
	s.pushRelease(func() error { order = append(order, 3); return nil })

	s.unwind()

	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, s.Err())
}

func TestUnwindKeepsFirstError(t *testing.T) {
	errFirst := errors.New("first")
	errSecond := errors.New("second")

	s := &Session{}
	s.pushRelease(func() error { return errSecond })
	s.pushRelease(func() error { return errFirst })

	s.unwind()

	assert.ErrorIs(t, s.Err(), errFirst)
}

func TestRecordErrIgnoresSubsequent(t *testing.T) {
	errFirst := errors.New("first")
	errSecond := errors.New("second")

	s := &Session{}
	s.recordErr(errFirst)
	s.recordErr(errSecond)

	assert.ErrorIs(t, s.Err(), errFirst)
}

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		Idle:      "idle",
		Prepared:  "prepared",
		Mounted:   "mounted",
		Active:    "active",
		Unmounted: "unmounted",
		Cleaned:   "cleaned",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}
