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
	"context"
	"encoding/binary"
	"io"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/courserec/courserec/base/encoding"
	"github.com/courserec/courserec/base/log"
	"github.com/courserec/courserec/base/progress"
	"github.com/courserec/courserec/common/floats"
	"github.com/courserec/courserec/dataset"
)

// Score is one loss checkpoint sampled during training.
type Score struct {
	Epoch int
	Loss  float32
}

type FitConfig struct {
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Verbose: 20,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

// BiasedMF factorizes the mean-centered course×user rating matrix into
// latent course factors, latent user factors and a per-user bias:
//
//	\hat{r}_{cu} = x_c^T w_u + b_u + \bar{y}_c
//
// where \bar{y}_c is the per-course mean removed before training and
// added back at prediction time. The loss is a masked regularized
// squared error; the bias term is not regularized, mirroring standard
// bias treatment.
//
// Hyper-parameters:
//
//	Reg        - The regularization strength. Default is 1.0.
//	Lr         - The learning rate of Adam. Default is 0.1.
//	NFactors   - The number of latent factors. Default is 50.
//	NEpochs    - The number of training epochs. Default is 600.
//	InitMean   - The mean of initial random latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial random latent factors. Default is 0.1.
type BiasedMF struct {
	BaseModel
	UserDict   *dataset.Dict
	CourseDict *dataset.Dict
	// Model parameters
	CourseFactor [][]float32 // x_c
	UserFactor   [][]float32 // w_u
	UserBias     []float32   // b_u
	CourseMean   []float32   // \bar{y}_c
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewBiasedMF creates a BiasedMF model.
func NewBiasedMF(params Params) *BiasedMF {
	mf := new(BiasedMF)
	mf.SetParams(params)
	return mf
}

// SetParams sets hyper-parameters of the BiasedMF model.
func (mf *BiasedMF) SetParams(params Params) {
	mf.BaseModel.SetParams(params)
	mf.nFactors = mf.Params.GetInt(NFactors, 50)
	mf.nEpochs = mf.Params.GetInt(NEpochs, 600)
	mf.lr = mf.Params.GetFloat32(Lr, 0.1)
	mf.reg = mf.Params.GetFloat32(Reg, 1.0)
	mf.initMean = mf.Params.GetFloat32(InitMean, 0)
	mf.initStdDev = mf.Params.GetFloat32(InitStdDev, 0.1)
}

// Init allocates randomly initialized parameters for a training run.
func (mf *BiasedMF) Init(trainSet *dataset.Dataset) {
	mf.UserDict = trainSet.UserDict
	mf.CourseDict = trainSet.CourseDict
	mf.CourseFactor = mf.GetRandomGenerator().NormalMatrix(trainSet.CountCourses(), mf.nFactors, mf.initMean, mf.initStdDev)
	mf.UserFactor = mf.GetRandomGenerator().NormalMatrix(trainSet.CountUsers(), mf.nFactors, mf.initMean, mf.initStdDev)
	mf.UserBias = mf.GetRandomGenerator().NormalVector(trainSet.CountUsers(), mf.initMean, mf.initStdDev)
}

// Fit the BiasedMF model with full-batch Adam. The optimization loop is
// strictly sequential: every epoch's gradient depends on the previous
// epoch's parameters. Returns the loss checkpoints sampled every
// config.Verbose epochs.
func (mf *BiasedMF) Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) []Score {
	log.Logger().Info("fit biased mf",
		zap.Int("n_users", trainSet.CountUsers()),
		zap.Int("n_courses", trainSet.CountCourses()),
		zap.Int("n_observed", trainSet.CountObserved()),
		zap.Any("params", mf.GetParams()))
	mf.Init(trainSet)
	ynorm, ymean := trainSet.Normalize()
	mf.CourseMean = ymean

	numCourses := trainSet.CountCourses()
	numUsers := trainSet.CountUsers()
	// Training-only buffers. Parameter and gradient rows share one
	// ordering: course factors, user factors, then the bias vector.
	gradCourse := make([][]float32, numCourses)
	for c := range gradCourse {
		gradCourse[c] = make([]float32, mf.nFactors)
	}
	gradUser := make([][]float32, numUsers)
	for u := range gradUser {
		gradUser[u] = make([]float32, mf.nFactors)
	}
	gradBias := make([]float32, numUsers)
	params := make([][]float32, 0, numCourses+numUsers+1)
	params = append(params, mf.CourseFactor...)
	params = append(params, mf.UserFactor...)
	params = append(params, mf.UserBias)
	grads := make([][]float32, 0, numCourses+numUsers+1)
	grads = append(grads, gradCourse...)
	grads = append(grads, gradUser...)
	grads = append(grads, gradBias)
	opt := NewAdam(mf.lr)

	scores := make([]Score, 0, mf.nEpochs/config.Verbose+1)
	fitStart := time.Now()
	_, span := progress.Start(ctx, "BiasedMF.Fit", mf.nEpochs)
	for epoch := 1; epoch <= mf.nEpochs; epoch++ {
		floats.MatZero(gradCourse)
		floats.MatZero(gradUser)
		floats.Zero(gradBias)
		// Masked squared error over observed cells. Unobserved cells
		// contribute neither loss nor gradient.
		var cost float32
		for c := 0; c < numCourses; c++ {
			for u, ok := trainSet.R[c].NextSet(0); ok; u, ok = trainSet.R[c].NextSet(u + 1) {
				e := floats.Dot(mf.CourseFactor[c], mf.UserFactor[u]) + mf.UserBias[u] - ynorm[c][u]
				cost += e * e
				floats.MulConstAdd(mf.UserFactor[u], e, gradCourse[c])
				floats.MulConstAdd(mf.CourseFactor[c], e, gradUser[u])
				gradBias[u] += e
			}
		}
		// L2 term on the factors only. Rows with no observations shrink
		// toward their regularization-only optimum, which is expected.
		var penalty float32
		for c := 0; c < numCourses; c++ {
			penalty += floats.SumSquares(mf.CourseFactor[c])
			floats.MulConstAdd(mf.CourseFactor[c], mf.reg, gradCourse[c])
		}
		for u := 0; u < numUsers; u++ {
			penalty += floats.SumSquares(mf.UserFactor[u])
			floats.MulConstAdd(mf.UserFactor[u], mf.reg, gradUser[u])
		}
		opt.Step(params, grads)
		if epoch%config.Verbose == 0 || epoch == mf.nEpochs {
			loss := 0.5*cost + mf.reg/2*penalty
			scores = append(scores, Score{Epoch: epoch, Loss: loss})
			log.Logger().Debug("fit biased mf",
				zap.Int("epoch", epoch),
				zap.Int("n_epochs", mf.nEpochs),
				zap.Float32("loss", loss))
		}
		span.Add(1)
	}
	span.End()
	log.Logger().Info("fit biased mf complete",
		zap.Float32("loss", scores[len(scores)-1].Loss),
		zap.String("fit_time", time.Since(fitStart).String()))
	return scores
}

// Predict the rating given by a user to a course. Unknown identifiers
// yield zero; serving layers should check membership beforehand.
func (mf *BiasedMF) Predict(userId, courseId string) float32 {
	userIndex := mf.UserDict.Id(userId)
	courseIndex := mf.CourseDict.Id(courseId)
	if userIndex == dataset.NotId {
		log.Logger().Warn("unknown user", zap.String("user_id", userId))
	}
	if courseIndex == dataset.NotId {
		log.Logger().Warn("unknown course", zap.String("course_id", courseId))
	}
	return mf.internalPredict(courseIndex, userIndex)
}

func (mf *BiasedMF) internalPredict(courseIndex, userIndex int) float32 {
	if courseIndex == dataset.NotId || userIndex == dataset.NotId {
		return 0
	}
	return floats.Dot(mf.CourseFactor[courseIndex], mf.UserFactor[userIndex]) +
		mf.UserBias[userIndex] + mf.CourseMean[courseIndex]
}

// PredictAll reconstructs the prediction column of one user across every
// known course, undoing the mean-centering.
func (mf *BiasedMF) PredictAll(userIndex int) []float32 {
	predictions := make([]float32, len(mf.CourseFactor))
	for c := range mf.CourseFactor {
		predictions[c] = mf.internalPredict(c, userIndex)
	}
	return predictions
}

// Marshal model into byte stream. The snapshot is complete: parameters,
// their shapes, the per-course means and both index maps, so loading
// restores byte-for-byte equivalent servable state.
func (mf *BiasedMF) Marshal(w io.Writer) error {
	if err := encoding.WriteGob(w, mf.Params); err != nil {
		return errors.Trace(err)
	}
	dims := []int64{int64(len(mf.CourseFactor)), int64(len(mf.UserFactor)), int64(mf.nFactors)}
	if err := binary.Write(w, binary.LittleEndian, dims); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, mf.UserDict.Ids()); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, mf.CourseDict.Ids()); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, mf.CourseFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, mf.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteVector(w, mf.UserBias); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteVector(w, mf.CourseMean))
}

// Unmarshal model from byte stream. Nothing is applied to the receiver
// until the whole snapshot decodes consistently.
func (mf *BiasedMF) Unmarshal(r io.Reader) error {
	var params Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	dims := make([]int64, 3)
	if err := binary.Read(r, binary.LittleEndian, dims); err != nil {
		return errors.Trace(err)
	}
	numCourses, numUsers, nFactors := int(dims[0]), int(dims[1]), int(dims[2])
	var userIds, courseIds []string
	if err := encoding.ReadGob(r, &userIds); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.ReadGob(r, &courseIds); err != nil {
		return errors.Trace(err)
	}
	if len(userIds) != numUsers || len(courseIds) != numCourses {
		return errors.NotValidf("index maps do not match parameter shapes")
	}
	courseFactor := newMatrix(numCourses, nFactors)
	if err := encoding.ReadMatrix(r, courseFactor); err != nil {
		return errors.Trace(err)
	}
	userFactor := newMatrix(numUsers, nFactors)
	if err := encoding.ReadMatrix(r, userFactor); err != nil {
		return errors.Trace(err)
	}
	userBias := make([]float32, numUsers)
	if err := encoding.ReadVector(r, userBias); err != nil {
		return errors.Trace(err)
	}
	courseMean := make([]float32, numCourses)
	if err := encoding.ReadVector(r, courseMean); err != nil {
		return errors.Trace(err)
	}
	mf.SetParams(params)
	if mf.nFactors != nFactors {
		return errors.NotValidf("latent dimensionality does not match hyper-parameters")
	}
	mf.UserDict = dataset.NewDictFromIds(userIds)
	mf.CourseDict = dataset.NewDictFromIds(courseIds)
	mf.CourseFactor = courseFactor
	mf.UserFactor = userFactor
	mf.UserBias = userBias
	mf.CourseMean = courseMean
	return nil
}

func (mf *BiasedMF) Clear() {
	mf.UserDict = nil
	mf.CourseDict = nil
	mf.CourseFactor = nil
	mf.UserFactor = nil
	mf.UserBias = nil
	mf.CourseMean = nil
}

func (mf *BiasedMF) Invalid() bool {
	return mf == nil ||
		mf.UserDict == nil ||
		mf.CourseDict == nil ||
		mf.CourseFactor == nil ||
		mf.UserFactor == nil ||
		mf.UserBias == nil ||
		mf.CourseMean == nil
}

func newMatrix(row, col int) [][]float32 {
	ret := make([][]float32, row)
	for i := range ret {
		ret[i] = make([]float32, col)
	}
	return ret
}
