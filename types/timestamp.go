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

import (
	"fmt"
	"time"
)

// Timestamp is the 32-bit packed wall-clock form found in redo headers.
// The packing is lossy (every month has 31 days, epoch 1988-01-01); the
// decoder reproduces it bit for bit rather than mapping onto a real calendar.
type Timestamp uint32

// Parts unpacks the lossy packed representation.
func (t Timestamp) Parts() (year, month, day, hour, minute, second int) {
	res := uint32(t)
	second = int(res % 60)
	res /= 60
	minute = int(res % 60)
	res /= 60
	hour = int(res % 24)
	res /= 24
	day = int(res%31) + 1
	res /= 31
	month = int(res%12) + 1
	res /= 12
	year = int(res) + 1988
	return year, month, day, hour, minute, second
}

// Time maps the packed value onto a time.Time in UTC. Day overflow (the
// packed form allows day 31 in every month) is normalized by time.Date.
func (t Timestamp) Time() time.Time {
	yy, mm, dd, hh, mi, ss := t.Parts()
	return time.Date(yy, time.Month(mm), dd, hh, mi, ss, 0, time.UTC)
}

func (t Timestamp) String() string {
	yy, mm, dd, hh, mi, ss := t.Parts()
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", yy, mm, dd, hh, mi, ss)
}
