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

	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// MongoDB is the data storage based on MongoDB. The marketplace
// application owns the collections; the engine only reads them.
type MongoDB struct {
	client *mongo.Client
	dbName string
}

// OpenMongoDB connects to a MongoDB data store.
func OpenMongoDB(dsn string) (*MongoDB, error) {
	ctx := context.Background()
	cs, err := connstring.ParseAndValidate(dsn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &MongoDB{client: client, dbName: cs.Database}, nil
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	var hasUsers, hasCourses, hasEnrollments bool
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	for _, collectionName := range collections {
		switch collectionName {
		case "users":
			hasUsers = true
		case "courses":
			hasCourses = true
		case "enrollments":
			hasEnrollments = true
		}
	}
	// create collections
	if !hasUsers {
		if err = d.CreateCollection(ctx, "users"); err != nil {
			return errors.Trace(err)
		}
	}
	if !hasCourses {
		if err = d.CreateCollection(ctx, "courses"); err != nil {
			return errors.Trace(err)
		}
	}
	if !hasEnrollments {
		if err = d.CreateCollection(ctx, "enrollments"); err != nil {
			return errors.Trace(err)
		}
	}
	// create indices
	_, err = d.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{
			"student_id": 1,
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.Collection("courses").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{
			"course_id": 1,
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.Collection("enrollments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "student_id", Value: 1},
			{Key: "course_id", Value: 1},
		},
	})
	return errors.Trace(err)
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

// GetStudents returns all users holding the student role from MongoDB.
func (db *MongoDB) GetStudents(ctx context.Context) ([]Student, error) {
	c := db.client.Database(db.dbName).Collection("users")
	r, err := c.Find(ctx, bson.M{"role": bson.M{"$eq": "student"}})
	if err != nil {
		return nil, errors.Trace(err)
	}
	students := make([]Student, 0)
	for r.Next(ctx) {
		var student Student
		if err = r.Decode(&student); err != nil {
			return nil, errors.Trace(err)
		}
		students = append(students, student)
	}
	return students, nil
}

// GetCourses returns all published courses from MongoDB.
func (db *MongoDB) GetCourses(ctx context.Context) ([]Course, error) {
	c := db.client.Database(db.dbName).Collection("courses")
	r, err := c.Find(ctx, bson.M{"published": bson.M{"$eq": true}})
	if err != nil {
		return nil, errors.Trace(err)
	}
	courses := make([]Course, 0)
	for r.Next(ctx) {
		var course Course
		if err = r.Decode(&course); err != nil {
			return nil, errors.Trace(err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// GetEnrollments returns all enrollment records from MongoDB.
func (db *MongoDB) GetEnrollments(ctx context.Context) ([]Enrollment, error) {
	c := db.client.Database(db.dbName).Collection("enrollments")
	r, err := c.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Trace(err)
	}
	enrollments := make([]Enrollment, 0)
	for r.Next(ctx) {
		var enrollment Enrollment
		if err = r.Decode(&enrollment); err != nil {
			return nil, errors.Trace(err)
		}
		enrollments = append(enrollments, enrollment)
	}
	return enrollments, nil
}
