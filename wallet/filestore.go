package wallet

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const dataFileExtension = ".id"

// FileStore keeps one file per label in a single directory. Writes go
// through a temp file and a rename so a crash never leaves a half-written
// identity behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store rooted at path, creating the
// directory if needed
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, errors.Wrapf(err, "Failed to create wallet directory '%s'", path)
	}
	return &FileStore{path: path}, nil
}

// Put stores data under label
func (fs *FileStore) Put(label string, data []byte) error {
	tmp, err := ioutil.TempFile(fs.path, label+".tmp")
	if err != nil {
		return errors.Wrap(err, "Failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "Failed to write identity data")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "Failed to close temp file")
	}
	return os.Rename(tmp.Name(), fs.pathForLabel(label))
}

// Get retrieves the data stored under label
func (fs *FileStore) Get(label string) ([]byte, error) {
	data, err := ioutil.ReadFile(fs.pathForLabel(label))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes the data stored under label
func (fs *FileStore) Remove(label string) error {
	err := os.Remove(fs.pathForLabel(label))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Exists reports whether data is stored under label
func (fs *FileStore) Exists(label string) (bool, error) {
	_, err := os.Stat(fs.pathForLabel(label))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all stored labels
func (fs *FileStore) List() ([]string, error) {
	files, err := ioutil.ReadDir(fs.path)
	if err != nil {
		return nil, err
	}
	labels := []string{}
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, dataFileExtension) {
			continue
		}
		labels = append(labels, strings.TrimSuffix(name, dataFileExtension))
	}
	return labels, nil
}

func (fs *FileStore) pathForLabel(label string) string {
	return filepath.Join(fs.path, label+dataFileExtension)
}
