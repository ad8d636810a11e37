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

//go:build !(linux && cgo && pam)

package auth

// newPAM returns nil when PAM support was not compiled in (non-Linux,
// cgo disabled, or the "pam" build tag omitted), so New falls back to
// the null adapter.
func newPAM() Adapter { return nil }
