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

	"github.com/chewxy/math32"
	"github.com/courserec/courserec/storage/data"
)

const (
	// MaxRating is the upper bound of the implicit rating scale.
	MaxRating float32 = 5

	progressWeight  float32 = 4   // full progress earns 4 points
	completionBonus float32 = 3   // finishing the course earns 3 points
	quizWeight      float32 = 3   // a perfect passed quiz earns 3 points
	paceBonus       float32 = 0.5 // finishing fast earns half a point

	paceWindow = 30 * 24 * time.Hour
)

// ImplicitRating synthesizes a preference score in [0, MaxRating] from
// one enrollment's engagement signals. It is a pure function of the
// record and the supplied clock.
func ImplicitRating(e data.Enrollment, now time.Time) float32 {
	rating := float32(e.Progress) / 100 * progressWeight
	if e.Completed {
		rating += completionBonus
	}
	if e.PassedQuiz && e.QuizScore != nil {
		rating += float32(*e.QuizScore) / 100 * quizWeight
	}
	// Fast engagement bonus: the course was worked through in under
	// thirty days, measured to completion or to the current moment.
	end := now
	if e.Completed && e.CompletedAt != nil {
		end = *e.CompletedAt
	}
	elapsed := end.Sub(e.StartedAt)
	if elapsed > 0 && elapsed < paceWindow {
		rating += paceBonus
	}
	return math32.Max(0, math32.Min(rating, MaxRating))
}
