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
	"sync"
)

// Memory is an in-process data store used by tests and the memory://
// scheme. Inserts are only exercised by test fixtures.
type Memory struct {
	mu          sync.RWMutex
	students    []Student
	courses     []Course
	enrollments []Enrollment
}

// NewMemory creates an empty in-process data store.
func NewMemory() *Memory {
	return new(Memory)
}

func (db *Memory) Init() error {
	return nil
}

func (db *Memory) Close() error {
	return nil
}

// InsertStudent adds a student to the store.
func (db *Memory) InsertStudent(student Student) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.students = append(db.students, student)
}

// InsertCourse adds a course to the store.
func (db *Memory) InsertCourse(course Course) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.courses = append(db.courses, course)
}

// InsertEnrollment adds an enrollment to the store.
func (db *Memory) InsertEnrollment(enrollment Enrollment) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.enrollments = append(db.enrollments, enrollment)
}

func (db *Memory) GetStudents(_ context.Context) ([]Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	students := make([]Student, len(db.students))
	copy(students, db.students)
	return students, nil
}

// GetCourses returns published courses only, matching the read contract
// of the MongoDB store.
func (db *Memory) GetCourses(_ context.Context) ([]Course, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	courses := make([]Course, 0, len(db.courses))
	for _, course := range db.courses {
		if course.Published {
			courses = append(courses, course)
		}
	}
	return courses, nil
}

func (db *Memory) GetEnrollments(_ context.Context) ([]Enrollment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	enrollments := make([]Enrollment, len(db.enrollments))
	copy(enrollments, db.enrollments)
	return enrollments, nil
}
