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
	"github.com/chewxy/math32"
)

// Optimizer applies one gradient step to a list of parameter vectors.
// params and grads must keep the same shapes across calls.
type Optimizer interface {
	Step(params, grads [][]float32)
}

type SGD struct {
	lr float32
}

func NewSGD(lr float32) *SGD {
	return &SGD{lr: lr}
}

func (s *SGD) Step(params, grads [][]float32) {
	for i := range params {
		for j := range params[i] {
			params[i][j] -= s.lr * grads[i][j]
		}
	}
}

// Adam is the adaptive first/second-moment optimizer. Moment buffers are
// allocated lazily on the first step.
type Adam struct {
	alpha float32
	beta1 float32
	beta2 float32
	eps   float32
	ms    [][]float32
	vs    [][]float32
	t     float32
}

func NewAdam(alpha float32) *Adam {
	return &Adam{
		alpha: alpha,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
	}
}

func (a *Adam) Step(params, grads [][]float32) {
	if a.ms == nil {
		a.ms = make([][]float32, len(params))
		a.vs = make([][]float32, len(params))
		for i := range params {
			a.ms[i] = make([]float32, len(params[i]))
			a.vs[i] = make([]float32, len(params[i]))
		}
	}
	a.t++

	fix1 := 1 - math32.Pow(a.beta1, a.t)
	fix2 := 1 - math32.Pow(a.beta2, a.t)
	lr := a.alpha * math32.Sqrt(fix2) / fix1

	for i := range params {
		m, v := a.ms[i], a.vs[i]
		for j := range params[i] {
			g := grads[i][j]
			// m += (1 - beta1) * (grad - m)
			m[j] += (1 - a.beta1) * (g - m[j])
			// v += (1 - beta2) * (grad * grad - v)
			v[j] += (1 - a.beta2) * (g*g - v[j])
			// param -= lr * m / (sqrt(v) + eps)
			params[i][j] -= lr * m[j] / (math32.Sqrt(v[j]) + a.eps)
		}
	}
}
