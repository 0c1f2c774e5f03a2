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

package blob

import (
	"io"
	"os"
	"path"

	"github.com/juju/errors"
)

// Store persists opaque model snapshots under well-known names.
type Store interface {
	// Open a snapshot for reading.
	Open(name string) (io.ReadCloser, error)
	// Create a snapshot for writing. The snapshot becomes visible under
	// its name only when the returned writer is closed successfully.
	Create(name string) (io.WriteCloser, error)
}

// POSIX is a blob store over a local directory.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Open a file for reading. It returns an io.Reader that can be used to read the file's content.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	fullPath := path.Join(p.dir, name)
	return os.Open(fullPath)
}

// Create a new file for writing. Data is staged in a temporary file and
// renamed over the target on Close, so readers never observe a partially
// written snapshot.
func (p *POSIX) Create(name string) (io.WriteCloser, error) {
	fullPath := path.Join(p.dir, name)
	if err := os.MkdirAll(path.Dir(fullPath), os.ModePerm); err != nil {
		return nil, errors.Trace(err)
	}
	file, err := os.CreateTemp(path.Dir(fullPath), path.Base(fullPath)+".*.tmp")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &stagedFile{file: file, target: fullPath}, nil
}

type stagedFile struct {
	file   *os.File
	target string
}

func (f *stagedFile) Write(p []byte) (int, error) {
	return f.file.Write(p)
}

func (f *stagedFile) Close() error {
	if err := f.file.Close(); err != nil {
		_ = os.Remove(f.file.Name())
		return errors.Trace(err)
	}
	if err := os.Rename(f.file.Name(), f.target); err != nil {
		_ = os.Remove(f.file.Name())
		return errors.Trace(err)
	}
	return nil
}
