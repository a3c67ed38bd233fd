// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// ComponentBreakdown describes the stored records of one component
// within a snapshot.
type ComponentBreakdown struct {
	Records int64
	Bytes   int64
	// Path locates the component's blob within the snapshot store.
	Path string
}

// SnapshotBreakdown maps component names to their stored blobs.
type SnapshotBreakdown map[string]*ComponentBreakdown

// Snapshot is an immutable, point-in-time capture of a source
// instance's configuration, partitioned by component.
type Snapshot struct {
	ID   string
	Name string
	// ParentID is the source instance the snapshot was taken from.
	ParentID string
	// Locked snapshots are reserved and must not be consumed as a
	// migration source.
	Locked    bool
	Breakdown SnapshotBreakdown
	CreateAt  int64
	DeleteAt  int64
}

// SnapshotFilter describes the parameters used to constrain a set of
// snapshots.
type SnapshotFilter struct {
	Paging
	ParentID string
}

// NewSnapshotFromReader will create a Snapshot from an io.Reader with
// JSON data.
func NewSnapshotFromReader(reader io.Reader) (*Snapshot, error) {
	var snapshot Snapshot
	err := json.NewDecoder(reader).Decode(&snapshot)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}

	return &snapshot, nil
}

// NewSnapshotsFromReader will create a slice of Snapshots from an
// io.Reader with JSON data.
func NewSnapshotsFromReader(reader io.Reader) ([]*Snapshot, error) {
	snapshots := []*Snapshot{}
	err := json.NewDecoder(reader).Decode(&snapshots)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode snapshots")
	}

	return snapshots, nil
}
