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

// Seq numbers a redo-log file within its sequence.
type Seq = uint32

// Rba is a redo byte address: a position within a log-file sequence.
type Rba struct {
	Sequence    uint32
	BlockNumber uint32
	Offset      uint16
}

func NewRba(blockNumber, sequence uint32, offset uint16) Rba {
	return Rba{Sequence: sequence, BlockNumber: blockNumber, Offset: offset}
}

func (r Rba) String() string {
	return fmt.Sprintf("%d.%d.%d", r.Sequence, r.BlockNumber, r.Offset)
}
