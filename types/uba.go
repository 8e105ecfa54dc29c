// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import "fmt"

// Uba is an undo byte address, a packed pointer into an undo segment.
type Uba uint64

func (u Uba) Block() uint32 {
	return uint32(u)
}

func (u Uba) Record() uint8 {
	return uint8(u >> 48)
}

func (u Uba) Sequence() uint16 {
	return uint16(u >> 32)
}

func (u Uba) String() string {
	return fmt.Sprintf("%d.%d.%d", u.Block(), u.Record(), u.Sequence())
}
