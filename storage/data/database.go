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

package data

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
)

const (
	MongoPrefix    = "mongodb://"
	MongoSrvPrefix = "mongodb+srv://"
	MemoryPrefix   = "memory://"
)

var ErrUnknownScheme = errors.NotSupportedf("data store scheme")

// Student is a user of the marketplace holding the student role.
type Student struct {
	StudentId string `bson:"student_id"`
	Name      string `bson:"name"`
}

// Course is a published course in the catalog.
type Course struct {
	CourseId  string    `bson:"course_id"`
	Title     string    `bson:"title"`
	Published bool      `bson:"published"`
	CreatedAt time.Time `bson:"created_at"`
}

// Enrollment is one student's engagement record for one course. The
// recommendation engine only reads snapshots; the record is owned by
// the marketplace application.
type Enrollment struct {
	StudentId   string     `bson:"student_id"`
	CourseId    string     `bson:"course_id"`
	Progress    float64    `bson:"progress"` // percentage in [0, 100]
	Completed   bool       `bson:"completed"`
	PassedQuiz  bool       `bson:"passed_quiz"`
	QuizScore   *float64   `bson:"quiz_score,omitempty"` // percentage in [0, 100]
	StartedAt   time.Time  `bson:"started_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
}

// Database is the read boundary between the engine and the marketplace
// data store. All three reads return point-in-time snapshots.
type Database interface {
	// Init collections and indices.
	Init() error
	// Close the connection.
	Close() error
	// GetStudents returns all users with the student role.
	GetStudents(ctx context.Context) ([]Student, error)
	// GetCourses returns all published courses.
	GetCourses(ctx context.Context) ([]Course, error)
	// GetEnrollments returns all enrollment records.
	GetEnrollments(ctx context.Context) ([]Enrollment, error)
}

// Open a data store specified by the DSN scheme.
func Open(dsn string) (Database, error) {
	switch {
	case strings.HasPrefix(dsn, MongoPrefix), strings.HasPrefix(dsn, MongoSrvPrefix):
		return OpenMongoDB(dsn)
	case strings.HasPrefix(dsn, MemoryPrefix):
		return NewMemory(), nil
	default:
		return nil, errors.Trace(ErrUnknownScheme)
	}
}
