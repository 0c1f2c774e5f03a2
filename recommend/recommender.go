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
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/courserec/courserec/base/heap"
	"github.com/courserec/courserec/base/log"
	"github.com/courserec/courserec/dataset"
	"github.com/courserec/courserec/model"
	"github.com/courserec/courserec/storage/blob"
	"github.com/courserec/courserec/storage/data"
)

// ModelFileName is the single well-known snapshot slot. One model per
// deployment; a successful training run replaces it wholesale.
const ModelFileName = "biased_mf.model"

// DefaultTopK is the recommendation list length when callers pass a
// non-positive value.
const DefaultTopK = 10

// Recommendation is one ranked entry of a recommendation list.
type Recommendation struct {
	CourseId        string
	PredictedRating float32
}

// Recommender owns the live model slot. Training runs are serialized
// and the slot is swapped atomically only after a full train and save
// succeed, so concurrent serving calls always see a complete parameter
// set.
type Recommender struct {
	database  data.Database
	store     blob.Store
	params    model.Params
	fitConfig *model.FitConfig
	clock     func() time.Time

	trainMutex sync.Mutex
	modelMutex sync.RWMutex
	liveModel  *model.BiasedMF
	version    atomic.Int64
}

// NewRecommender creates a recommender over a data store and a snapshot
// store. Hyper-parameters not present in params keep model defaults.
func NewRecommender(database data.Database, store blob.Store, params model.Params) *Recommender {
	return &Recommender{
		database:  database,
		store:     store,
		params:    params,
		fitConfig: model.NewFitConfig(),
		clock:     time.Now,
	}
}

// SetClock replaces the engagement clock. Tests use it to pin "now" for
// the pace bonus of implicit ratings.
func (r *Recommender) SetClock(clock func() time.Time) {
	r.clock = clock
}

// SetFitConfig replaces the fit configuration used by training runs.
func (r *Recommender) SetFitConfig(fitConfig *model.FitConfig) {
	r.fitConfig = fitConfig
}

// ModelVersion returns the generation counter of the live model slot,
// incremented on every successful train or load.
func (r *Recommender) ModelVersion() int64 {
	return r.version.Load()
}

func (r *Recommender) current() *model.BiasedMF {
	r.modelMutex.RLock()
	defer r.modelMutex.RUnlock()
	return r.liveModel
}

func (r *Recommender) swap(m *model.BiasedMF) {
	r.modelMutex.Lock()
	r.liveModel = m
	r.modelMutex.Unlock()
	r.version.Inc()
}

// TrainModel reads a point-in-time snapshot of students, published
// courses and enrollments, trains a fresh model and persists it before
// swapping it into the live slot. On any failure the previous model, in
// memory and on disk, stays untouched and servable. A second concurrent
// call is rejected with ErrTrainingBusy rather than interleaved.
func (r *Recommender) TrainModel(ctx context.Context) (err error) {
	if !r.trainMutex.TryLock() {
		return ErrTrainingBusy
	}
	defer r.trainMutex.Unlock()
	defer func() {
		if p := recover(); p != nil {
			log.Logger().Error("training run panicked", zap.Any("panic", p))
			err = ErrOptimizationFailure
		}
	}()

	students, err := r.database.GetStudents(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	courses, err := r.database.GetCourses(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	enrollments, err := r.database.GetEnrollments(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	trainSet, err := dataset.NewDataset(students, courses, enrollments, r.clock())
	if err != nil {
		return errors.Trace(err)
	}
	m := model.NewBiasedMF(r.params)
	scores := m.Fit(ctx, trainSet, r.fitConfig)
	if err = r.save(m); err != nil {
		return errors.Trace(err)
	}
	r.swap(m)
	log.Logger().Info("model trained",
		zap.Int64("version", r.version.Load()),
		zap.Float32("final_loss", scores[len(scores)-1].Loss))
	return nil
}

// GetRecommendations ranks every known course for one user and returns
// at most topK entries with the highest predicted ratings. Ties are
// broken by course id ascending so the ranking is deterministic.
func (r *Recommender) GetRecommendations(userId string, topK int) ([]Recommendation, error) {
	m := r.current()
	if m.Invalid() {
		return nil, ErrModelNotTrained
	}
	userIndex := m.UserDict.Id(userId)
	if userIndex == dataset.NotId {
		return nil, ErrUserNotFound
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	predictions := m.PredictAll(userIndex)
	filter := heap.NewTopKFilter[int, float32](topK)
	for courseIndex, rating := range predictions {
		filter.Push(courseIndex, rating)
	}
	courseIndices, ratings := filter.PopAll()
	recommendations := lo.Map(courseIndices, func(courseIndex int, i int) Recommendation {
		courseId, _ := m.CourseDict.String(courseIndex)
		return Recommendation{CourseId: courseId, PredictedRating: ratings[i]}
	})
	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].PredictedRating != recommendations[j].PredictedRating {
			return recommendations[i].PredictedRating > recommendations[j].PredictedRating
		}
		return recommendations[i].CourseId < recommendations[j].CourseId
	})
	return recommendations, nil
}

// PredictRating predicts the rating of one (user, course) pair without
// materializing the full prediction matrix.
func (r *Recommender) PredictRating(userId, courseId string) (float32, error) {
	m := r.current()
	if m.Invalid() {
		return 0, ErrModelNotTrained
	}
	if m.UserDict.Id(userId) == dataset.NotId {
		return 0, ErrUserNotFound
	}
	if m.CourseDict.Id(courseId) == dataset.NotId {
		return 0, ErrCourseNotFound
	}
	return m.Predict(userId, courseId), nil
}

// SaveModel persists the live model to the well-known snapshot slot.
func (r *Recommender) SaveModel() error {
	m := r.current()
	if m.Invalid() {
		return ErrModelNotTrained
	}
	return r.save(m)
}

func (r *Recommender) save(m *model.BiasedMF) error {
	w, err := r.store.Create(ModelFileName)
	if err != nil {
		return errors.Trace(err)
	}
	if err = m.Marshal(w); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}

// LoadModel restores the live model from the well-known snapshot slot.
// A missing or malformed snapshot fails with ErrCorruptedModel and
// leaves the current slot untouched.
func (r *Recommender) LoadModel() error {
	reader, err := r.store.Open(ModelFileName)
	if err != nil {
		log.Logger().Error("failed to open model snapshot", zap.Error(err))
		return ErrCorruptedModel
	}
	defer func() {
		_ = reader.Close()
	}()
	m := new(model.BiasedMF)
	if err = m.Unmarshal(reader); err != nil {
		log.Logger().Error("failed to decode model snapshot", zap.Error(err))
		return ErrCorruptedModel
	}
	r.swap(m)
	log.Logger().Info("model loaded", zap.Int64("version", r.version.Load()))
	return nil
}
