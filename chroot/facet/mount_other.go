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

//go:build !linux

package facet

import "fmt"

func bindMount(source, target string) error {
	return fmt.Errorf("bind mounting is only supported on linux")
}

func mountFS(source, target, fstype, options string) error {
	return fmt.Errorf("mounting is only supported on linux")
}

func unmount(target string) error {
	return fmt.Errorf("unmounting is only supported on linux")
}
