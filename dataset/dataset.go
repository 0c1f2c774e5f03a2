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

import (
	"time"

	"github.com/bits-and-blooms/bitset"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/courserec/courserec/base/log"
	"github.com/courserec/courserec/storage/data"
)

// ErrInsufficientData is returned when students, courses or enrollments
// are empty and no meaningful matrix can be built.
var ErrInsufficientData = errors.NotValidf("empty training data")

// meanEpsilon guards the per-course mean against division by zero for
// courses with no enrollments.
const meanEpsilon float32 = 1e-12

// Dataset is the dense training snapshot: the rating matrix Y
// (courses × users), the observation mask R, and the index maps tying
// matrix positions back to external identifiers.
//
// A zero in Y is a padding value unless the matching bit in R is set;
// it must never be read as a true rating of zero.
type Dataset struct {
	UserDict   *Dict
	CourseDict *Dict
	Y          [][]float32
	R          []*bitset.BitSet
	observed   int
}

// NewDataset assembles the rating and mask matrices from snapshots of
// the student, course and enrollment universes. Every student and every
// published course receives an index even with zero enrollments; rows
// and columns that stay all-zero are legal. Enrollments referencing an
// identifier outside the universes are skipped. When a (user, course)
// pair is enrolled more than once the later record wins.
func NewDataset(students []data.Student, courses []data.Course, enrollments []data.Enrollment, now time.Time) (*Dataset, error) {
	if len(students) == 0 || len(courses) == 0 || len(enrollments) == 0 {
		return nil, ErrInsufficientData
	}
	d := &Dataset{
		UserDict:   NewDict(),
		CourseDict: NewDict(),
	}
	for _, student := range students {
		d.UserDict.Add(student.StudentId)
	}
	for _, course := range courses {
		d.CourseDict.Add(course.CourseId)
	}
	numUsers := d.UserDict.Count()
	numCourses := d.CourseDict.Count()
	d.Y = make([][]float32, numCourses)
	d.R = make([]*bitset.BitSet, numCourses)
	for c := 0; c < numCourses; c++ {
		d.Y[c] = make([]float32, numUsers)
		d.R[c] = bitset.New(uint(numUsers))
	}
	seen := mapset.NewSet[int64]()
	skipped, duplicated := 0, 0
	for _, enrollment := range enrollments {
		userIndex := d.UserDict.Id(enrollment.StudentId)
		courseIndex := d.CourseDict.Id(enrollment.CourseId)
		if userIndex == NotId || courseIndex == NotId {
			skipped++
			continue
		}
		if !seen.Add(int64(courseIndex)<<32 | int64(userIndex)) {
			duplicated++
		}
		d.Y[courseIndex][userIndex] = ImplicitRating(enrollment, now)
		d.R[courseIndex].Set(uint(userIndex))
	}
	d.observed = seen.Cardinality()
	if skipped > 0 || duplicated > 0 {
		log.Logger().Warn("inconsistent enrollment snapshot",
			zap.Int("skipped", skipped),
			zap.Int("duplicated", duplicated))
	}
	return d, nil
}

// CountUsers returns the number of students.
func (d *Dataset) CountUsers() int {
	return d.UserDict.Count()
}

// CountCourses returns the number of published courses.
func (d *Dataset) CountCourses() int {
	return d.CourseDict.Count()
}

// CountObserved returns the number of observed (user, course) cells.
func (d *Dataset) CountObserved() int {
	return d.observed
}

// Normalize centers every course row on its mean observed rating and
// masks unobserved cells back to zero. The returned mean vector must be
// persisted with the model and added back at prediction time.
func (d *Dataset) Normalize() (ynorm [][]float32, ymean []float32) {
	numCourses := d.CountCourses()
	numUsers := d.CountUsers()
	ynorm = make([][]float32, numCourses)
	ymean = make([]float32, numCourses)
	for c := 0; c < numCourses; c++ {
		var sum float32
		for u, ok := d.R[c].NextSet(0); ok; u, ok = d.R[c].NextSet(u + 1) {
			sum += d.Y[c][u]
		}
		ymean[c] = sum / (float32(d.R[c].Count()) + meanEpsilon)
		ynorm[c] = make([]float32, numUsers)
		for u, ok := d.R[c].NextSet(0); ok; u, ok = d.R[c].NextSet(u + 1) {
			ynorm[c][u] = d.Y[c][u] - ymean[c]
		}
	}
	return
}
