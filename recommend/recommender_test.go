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
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/courserec/courserec/model"
	"github.com/courserec/courserec/storage/blob"
	"github.com/courserec/courserec/storage/data"
)

var testEpoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func testParams() model.Params {
	return model.Params{
		model.NFactors:    4,
		model.NEpochs:     100,
		model.Lr:          0.05,
		model.Reg:         0.1,
		model.RandomState: int64(42),
	}
}

type RecommenderTestSuite struct {
	suite.Suite
	database    *data.Memory
	store       *blob.POSIX
	recommender *Recommender
}

func (s *RecommenderTestSuite) SetupTest() {
	s.database = data.NewMemory()
	s.store = blob.NewPOSIX(s.T().TempDir())
	s.recommender = NewRecommender(s.database, s.store, testParams())
	s.recommender.SetClock(func() time.Time {
		return testEpoch.Add(60 * 24 * time.Hour)
	})
}

func (s *RecommenderTestSuite) seedMarketplace() {
	for i := 0; i < 5; i++ {
		s.database.InsertStudent(data.Student{StudentId: fmt.Sprintf("u%d", i)})
	}
	for i := 0; i < 4; i++ {
		s.database.InsertCourse(data.Course{CourseId: fmt.Sprintf("c%d", i), Published: true})
	}
	s.database.InsertCourse(data.Course{CourseId: "draft", Published: false})
	enroll := func(u, c string, progress float64, completed bool) {
		s.database.InsertEnrollment(data.Enrollment{
			StudentId: u,
			CourseId:  c,
			Progress:  progress,
			Completed: completed,
			StartedAt: testEpoch,
		})
	}
	enroll("u0", "c0", 100, true)
	enroll("u0", "c1", 75, false)
	enroll("u1", "c0", 100, true)
	enroll("u1", "c2", 25, false)
	enroll("u2", "c1", 50, false)
	enroll("u3", "c2", 100, true)
	enroll("u3", "c3", 10, false)
	enroll("u4", "c3", 60, false)
}

func (s *RecommenderTestSuite) TestServeBeforeTraining() {
	_, err := s.recommender.GetRecommendations("u0", 3)
	s.ErrorIs(err, ErrModelNotTrained)
	_, err = s.recommender.PredictRating("u0", "c0")
	s.ErrorIs(err, ErrModelNotTrained)
	s.ErrorIs(s.recommender.SaveModel(), ErrModelNotTrained)
	s.Zero(s.recommender.ModelVersion())
}

func (s *RecommenderTestSuite) TestTrainInsufficientData() {
	err := s.recommender.TrainModel(context.Background())
	s.ErrorIs(err, ErrInsufficientData)
	s.Zero(s.recommender.ModelVersion())
}

func (s *RecommenderTestSuite) TestTrainAndServe() {
	s.seedMarketplace()
	s.NoError(s.recommender.TrainModel(context.Background()))
	s.Equal(int64(1), s.recommender.ModelVersion())

	recommendations, err := s.recommender.GetRecommendations("u0", 3)
	s.NoError(err)
	s.Len(recommendations, 3)
	courseUniverse := map[string]bool{"c0": true, "c1": true, "c2": true, "c3": true}
	for i, rec := range recommendations {
		s.True(courseUniverse[rec.CourseId], "unknown course %v", rec.CourseId)
		if i > 0 {
			s.GreaterOrEqual(recommendations[i-1].PredictedRating, rec.PredictedRating)
		}
	}
	// a topK larger than the catalog returns the whole catalog
	recommendations, err = s.recommender.GetRecommendations("u0", 100)
	s.NoError(err)
	s.Len(recommendations, 4)
	// non-positive topK falls back to the default list length
	recommendations, err = s.recommender.GetRecommendations("u0", 0)
	s.NoError(err)
	s.Len(recommendations, 4)

	rating, err := s.recommender.PredictRating("u0", "c2")
	s.NoError(err)
	s.NotZero(rating)
}

func (s *RecommenderTestSuite) TestUnknownIdentifiers() {
	s.seedMarketplace()
	s.NoError(s.recommender.TrainModel(context.Background()))
	_, err := s.recommender.GetRecommendations("ghost", 3)
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.recommender.PredictRating("ghost", "c0")
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.recommender.PredictRating("u0", "ghost")
	s.ErrorIs(err, ErrCourseNotFound)
	// unpublished courses are outside the model universe
	_, err = s.recommender.PredictRating("u0", "draft")
	s.ErrorIs(err, ErrCourseNotFound)
}

func (s *RecommenderTestSuite) TestSaveLoadRoundTrip() {
	s.seedMarketplace()
	s.NoError(s.recommender.TrainModel(context.Background()))
	want, err := s.recommender.PredictRating("u1", "c3")
	s.NoError(err)

	restored := NewRecommender(data.NewMemory(), s.store, testParams())
	s.NoError(restored.LoadModel())
	s.Equal(int64(1), restored.ModelVersion())
	got, err := restored.PredictRating("u1", "c3")
	s.NoError(err)
	s.Equal(want, got)
}

func (s *RecommenderTestSuite) TestLoadCorruptedModel() {
	// missing snapshot
	s.ErrorIs(s.recommender.LoadModel(), ErrCorruptedModel)
	s.Zero(s.recommender.ModelVersion())
	// garbage snapshot
	w, err := s.store.Create(ModelFileName)
	s.NoError(err)
	_, err = w.Write([]byte("not a model"))
	s.NoError(err)
	s.NoError(w.Close())
	s.ErrorIs(s.recommender.LoadModel(), ErrCorruptedModel)
	s.Zero(s.recommender.ModelVersion())
	_, err = s.recommender.GetRecommendations("u0", 3)
	s.ErrorIs(err, ErrModelNotTrained)
}

func (s *RecommenderTestSuite) TestRetrainKeepsServing() {
	s.seedMarketplace()
	s.NoError(s.recommender.TrainModel(context.Background()))
	s.Equal(int64(1), s.recommender.ModelVersion())
	// new engagement arrives and the model is retrained
	s.database.InsertEnrollment(data.Enrollment{
		StudentId: "u2", CourseId: "c3", Progress: 80, StartedAt: testEpoch,
	})
	s.NoError(s.recommender.TrainModel(context.Background()))
	s.Equal(int64(2), s.recommender.ModelVersion())
	_, err := s.recommender.GetRecommendations("u2", 3)
	s.NoError(err)
}

func TestRecommenderTestSuite(t *testing.T) {
	suite.Run(t, new(RecommenderTestSuite))
}

// blockingDatabase parks GetStudents until released so a training run
// can be held in flight.
type blockingDatabase struct {
	*data.Memory
	entered chan struct{}
	release chan struct{}
}

func (db *blockingDatabase) GetStudents(ctx context.Context) ([]data.Student, error) {
	db.entered <- struct{}{}
	<-db.release
	return db.Memory.GetStudents(ctx)
}

func TestTrainingBusy(t *testing.T) {
	database := &blockingDatabase{
		Memory:  data.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	database.InsertStudent(data.Student{StudentId: "u0"})
	database.InsertCourse(data.Course{CourseId: "c0", Published: true})
	database.InsertEnrollment(data.Enrollment{
		StudentId: "u0", CourseId: "c0", Progress: 100, StartedAt: testEpoch,
	})
	recommender := NewRecommender(database, blob.NewPOSIX(t.TempDir()), testParams())

	errCh := make(chan error)
	go func() {
		errCh <- recommender.TrainModel(context.Background())
	}()
	<-database.entered
	assert.ErrorIs(t, recommender.TrainModel(context.Background()), ErrTrainingBusy)
	close(database.release)
	assert.NoError(t, <-errCh)
	assert.Equal(t, int64(1), recommender.ModelVersion())
}
