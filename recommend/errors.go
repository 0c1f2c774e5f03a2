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

package recommend

import (
	"github.com/juju/errors"

	"github.com/courserec/courserec/dataset"
)

var (
	// ErrInsufficientData is returned by TrainModel when students,
	// courses or enrollments are empty; no state is changed.
	ErrInsufficientData = dataset.ErrInsufficientData
	// ErrModelNotTrained is returned by serving calls before a
	// successful train or load.
	ErrModelNotTrained = errors.NotProvisionedf("model")
	// ErrUserNotFound is returned when the requested user is outside
	// the current index map.
	ErrUserNotFound = errors.NotFoundf("user")
	// ErrCourseNotFound is returned when the requested course is
	// outside the current index map.
	ErrCourseNotFound = errors.NotFoundf("course")
	// ErrCorruptedModel is returned when a persisted snapshot is
	// missing or malformed; a broken load is never partially applied.
	ErrCorruptedModel = errors.NotValidf("model snapshot")
	// ErrTrainingBusy is returned when a second training run is
	// requested while one is already in flight.
	ErrTrainingBusy = errors.New("another training run is in flight")
	// ErrOptimizationFailure is returned when the training loop fails
	// unexpectedly; the previously persisted model stays servable.
	ErrOptimizationFailure = errors.New("optimization failure")
)
