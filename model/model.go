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
	"github.com/courserec/courserec/base"
)

// Model is the interface shared by trainable models.
type Model interface {
	SetParams(params Params)
	GetParams() Params
	// Clear drops all learned parameters.
	Clear()
	// Invalid reports whether the model holds no servable parameters.
	Invalid() bool
}

// BaseModel holds hyper-parameters and the seeded random generator.
type BaseModel struct {
	Params      Params
	rng         base.RandomGenerator
	randomState int64
}

// SetParams sets hyper-parameters and reseeds the random generator so a
// run with the same parameters is reproducible.
func (model *BaseModel) SetParams(params Params) {
	model.Params = params
	model.randomState = model.Params.GetInt64(RandomState, 0)
	model.rng = base.NewRandomGenerator(model.randomState)
}

// GetParams returns hyper-parameters.
func (model *BaseModel) GetParams() Params {
	return model.Params
}

// GetRandomGenerator returns the seeded random generator.
func (model *BaseModel) GetRandomGenerator() base.RandomGenerator {
	return model.rng
}
