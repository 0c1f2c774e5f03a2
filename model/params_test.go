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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsGet(t *testing.T) {
	p := Params{
		NFactors:    10,
		Lr:          0.05,
		RandomState: int64(3),
	}
	assert.Equal(t, 10, p.GetInt(NFactors, -1))
	assert.Equal(t, float32(0.05), p.GetFloat32(Lr, -1))
	assert.Equal(t, int64(3), p.GetInt64(RandomState, -1))
	// missing names fall back to defaults
	assert.Equal(t, 600, p.GetInt(NEpochs, 600))
	assert.Equal(t, float32(1), p.GetFloat32(Reg, 1))
	// numeric widening
	assert.Equal(t, float32(10), p.GetFloat32(NFactors, -1))
	assert.Equal(t, int64(10), p.GetInt64(NFactors, -1))
	// type mismatches fall back to defaults
	assert.Equal(t, -1, p.GetInt(Lr, -1))
	assert.Equal(t, int64(-1), p.GetInt64(Lr, -1))
}

func TestParamsCopyOverwrite(t *testing.T) {
	base := Params{NFactors: 10, Lr: 0.05}
	merged := base.Overwrite(Params{Lr: 0.1, NEpochs: 100})
	assert.Equal(t, 10, merged.GetInt(NFactors, -1))
	assert.Equal(t, float32(0.1), merged.GetFloat32(Lr, -1))
	assert.Equal(t, 100, merged.GetInt(NEpochs, -1))
	// the receiver is untouched
	assert.Equal(t, float32(0.05), base.GetFloat32(Lr, -1))
	assert.Equal(t, -1, base.GetInt(NEpochs, -1))

	clone := base.Copy()
	clone[NFactors] = 20
	assert.Equal(t, 10, base.GetInt(NFactors, -1))
}
