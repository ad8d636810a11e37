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

package util

import (
	"fmt"
	"strconv"
)

// ParseBool converts a keyfile boolean literal ("true"/"yes"/"1" or
// "false"/"no"/"0") into a bool. Any other input is a parse error, and
// the returned bool is then false.
func ParseBool(s string) (bool, error) {
	switch s {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", s)
	}
}

// ParseInt converts a keyfile integer literal using the digit grammar
// (optionally signed decimal digits only, no "0x" or underscores).
func ParseInt(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value %q", s)
	}
	return int(n), nil
}

// ParseString returns s verbatim; it exists so callers can treat all
// three scalar kinds uniformly through a common signature.
func ParseString(s string) (string, error) {
	return s, nil
}
