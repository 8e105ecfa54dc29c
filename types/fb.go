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

// Fb is the row-piece flag byte of a KDO field.
type Fb uint8

func (f Fb) IsNext() bool       { return f&0x01 != 0 }
func (f Fb) IsPrev() bool       { return f&0x02 != 0 }
func (f Fb) IsLast() bool       { return f&0x04 != 0 }
func (f Fb) IsFirst() bool      { return f&0x08 != 0 }
func (f Fb) IsDeleted() bool    { return f&0x10 != 0 }
func (f Fb) IsHead() bool       { return f&0x20 != 0 }
func (f Fb) IsClustered() bool  { return f&0x40 != 0 }
func (f Fb) IsClusterKey() bool { return f&0x80 != 0 }

// String renders the eight flag positions as KCHDFLPN, dash for unset.
func (f Fb) String() string {
	s := []byte("--------")
	if f.IsNext() {
		s[7] = 'N' // the last column continues in the next piece
	}
	if f.IsPrev() {
		s[6] = 'P' // the first column continues from the previous piece
	}
	if f.IsLast() {
		s[5] = 'L'
	}
	if f.IsFirst() {
		s[4] = 'F'
	}
	if f.IsDeleted() {
		s[3] = 'D'
	}
	if f.IsHead() {
		s[2] = 'H'
	}
	if f.IsClustered() {
		s[1] = 'C'
	}
	if f.IsClusterKey() {
		s[0] = 'K'
	}
	return string(s)
}
