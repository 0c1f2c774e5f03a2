// Copyright 2024 courserec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

// NotId is returned by Dict.Id for identifiers outside the universe.
const NotId = -1

// Dict is a dense zero-based bidirectional mapping between external
// identifiers and matrix indices. Indices are assigned in insertion
// order and are only meaningful together with the snapshot they were
// built from.
type Dict struct {
	si map[string]int
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int{}, is: []string{}}
}

// NewDictFromIds rebuilds a dictionary from an ordered identifier list,
// e.g. when loading a persisted model snapshot.
func NewDictFromIds(ids []string) *Dict {
	d := NewDict()
	for _, id := range ids {
		d.Add(id)
	}
	return d
}

// Count returns the size of the universe.
func (d *Dict) Count() int {
	return len(d.is)
}

// Add returns the index of s, assigning the next dense index if absent.
func (d *Dict) Add(s string) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	return y
}

// Id returns the index of s, or NotId if s is outside the universe.
func (d *Dict) Id(s string) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	return NotId
}

// String returns the identifier at index id.
func (d *Dict) String(id int) (string, bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

// Ids returns a copy of the identifier list in index order.
func (d *Dict) Ids() []string {
	ids := make([]string, len(d.is))
	copy(ids, d.is)
	return ids
}
