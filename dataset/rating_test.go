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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/courserec/courserec/storage/data"
)

var ratingEpoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func TestImplicitRatingFastPerfectCompletion(t *testing.T) {
	// full progress, completed, perfect quiz, finished in five days:
	// the raw score 4+3+3+0.5 clamps to the scale ceiling
	completedAt := ratingEpoch.Add(5 * 24 * time.Hour)
	rating := ImplicitRating(data.Enrollment{
		Progress:    100,
		Completed:   true,
		PassedQuiz:  true,
		QuizScore:   ptr(100.0),
		StartedAt:   ratingEpoch,
		CompletedAt: &completedAt,
	}, ratingEpoch.Add(90*24*time.Hour))
	assert.Equal(t, float32(5), rating)
}

func TestImplicitRatingZeroProgress(t *testing.T) {
	e := data.Enrollment{StartedAt: ratingEpoch}
	// enrolled yesterday, nothing done yet: only the pace bonus
	assert.Equal(t, float32(0.5), ImplicitRating(e, ratingEpoch.Add(24*time.Hour)))
	// enrolled months ago, nothing done: zero
	assert.Zero(t, ImplicitRating(e, ratingEpoch.Add(60*24*time.Hour)))
}

func TestImplicitRatingQuizRequiresPass(t *testing.T) {
	e := data.Enrollment{
		Progress:  50,
		QuizScore: ptr(90.0),
		StartedAt: ratingEpoch,
	}
	now := ratingEpoch.Add(60 * 24 * time.Hour)
	// failed quiz contributes nothing
	assert.Equal(t, float32(2), ImplicitRating(e, now))
	e.PassedQuiz = true
	assert.InDelta(t, float32(4.7), ImplicitRating(e, now), 1e-5)
	// passed flag without a recorded score contributes nothing
	e.QuizScore = nil
	assert.Equal(t, float32(2), ImplicitRating(e, now))
}

func TestImplicitRatingPaceWindow(t *testing.T) {
	e := data.Enrollment{Progress: 25, StartedAt: ratingEpoch}
	// inside the thirty day window
	assert.Equal(t, float32(1.5), ImplicitRating(e, ratingEpoch.Add(29*24*time.Hour)))
	// at the boundary and beyond
	assert.Equal(t, float32(1), ImplicitRating(e, ratingEpoch.Add(30*24*time.Hour)))
	assert.Equal(t, float32(1), ImplicitRating(e, ratingEpoch.Add(31*24*time.Hour)))
	// zero or negative elapsed time earns no bonus
	assert.Equal(t, float32(1), ImplicitRating(e, ratingEpoch))
	assert.Equal(t, float32(1), ImplicitRating(e, ratingEpoch.Add(-time.Hour)))
}

func TestImplicitRatingCompletionUsesCompletedAt(t *testing.T) {
	// completion pace is measured to CompletedAt even when "now" is far
	// in the future
	completedAt := ratingEpoch.Add(10 * 24 * time.Hour)
	e := data.Enrollment{
		Completed:   true,
		StartedAt:   ratingEpoch,
		CompletedAt: &completedAt,
	}
	assert.Equal(t, float32(3.5), ImplicitRating(e, ratingEpoch.Add(365*24*time.Hour)))
	// a completed record missing its timestamp falls back to the clock
	e.CompletedAt = nil
	assert.Equal(t, float32(3.5), ImplicitRating(e, ratingEpoch.Add(5*24*time.Hour)))
	assert.Equal(t, float32(3), ImplicitRating(e, ratingEpoch.Add(45*24*time.Hour)))
}

func TestImplicitRatingClamped(t *testing.T) {
	now := ratingEpoch.Add(60 * 24 * time.Hour)
	// out-of-range marketplace data must still land in [0, 5]
	malformed := []data.Enrollment{
		{Progress: 250, Completed: true, PassedQuiz: true, QuizScore: ptr(180.0), StartedAt: ratingEpoch},
		{Progress: -50, StartedAt: ratingEpoch},
		{Progress: -50, PassedQuiz: true, QuizScore: ptr(-100.0), StartedAt: ratingEpoch},
	}
	for _, e := range malformed {
		rating := ImplicitRating(e, now)
		assert.GreaterOrEqual(t, rating, float32(0))
		assert.LessOrEqual(t, rating, MaxRating)
	}
}

func TestImplicitRatingPure(t *testing.T) {
	e := data.Enrollment{Progress: 75, PassedQuiz: true, QuizScore: ptr(80.0), StartedAt: ratingEpoch}
	now := ratingEpoch.Add(7 * 24 * time.Hour)
	first := ImplicitRating(e, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ImplicitRating(e, now))
	}
}
