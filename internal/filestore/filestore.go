// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package filestore reads snapshot component blobs from a local
// directory tree. Blob paths come from snapshot breakdowns and are
// always relative to the store root.
package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileStore serves snapshot blobs from a root directory.
type FileStore struct {
	root string
}

// New creates a FileStore rooted at the given directory.
func New(root string) *FileStore {
	return &FileStore{root: root}
}

// ReadBlob opens the blob at the given breakdown path.
func (fs *FileStore) ReadBlob(path string) (io.ReadCloser, error) {
	full, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open blob %s", path)
	}
	return f, nil
}

// HasBlob reports whether the blob at the given breakdown path exists.
func (fs *FileStore) HasBlob(path string) bool {
	full, err := fs.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (fs *FileStore) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("blob path is empty")
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("blob path %q escapes the store root", path)
	}
	return filepath.Join(fs.root, clean), nil
}
