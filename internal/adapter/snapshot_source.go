// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/jackamondo/deskmigrate/model"
)

type snapshotGetter interface {
	GetSnapshot(snapshotID string) (*model.Snapshot, error)
}

// BlobStore reads stored snapshot component blobs.
type BlobStore interface {
	ReadBlob(path string) (io.ReadCloser, error)
}

// SnapshotSource fetches component records from the blobs of the
// snapshot referenced by the job.
type SnapshotSource struct {
	snapshots snapshotGetter
	blobs     BlobStore
}

// NewSnapshotSource creates a source adapter reading from the given
// snapshot metadata store and blob store.
func NewSnapshotSource(snapshots snapshotGetter, blobs BlobStore) *SnapshotSource {
	return &SnapshotSource{
		snapshots: snapshots,
		blobs:     blobs,
	}
}

// Fetch reads the component's blob from the snapshot store. Blobs are
// NDJSON, one record per line; a single JSON array is accepted as
// well.
func (s *SnapshotSource) Fetch(ctx context.Context, component string, job *model.MigrationJob) ([]model.Record, error) {
	snapshot, err := s.snapshots.GetSnapshot(job.SnapshotID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get snapshot")
	}
	if snapshot == nil {
		return nil, errors.Errorf("snapshot %s not found", job.SnapshotID)
	}

	breakdown, ok := snapshot.Breakdown[component]
	if !ok {
		return nil, errors.Errorf("snapshot %s has no blob for component %s", snapshot.ID, component)
	}

	blob, err := s.blobs.ReadBlob(breakdown.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read blob for component %s", component)
	}
	defer blob.Close()

	records, err := decodeRecords(blob)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode blob for component %s", component)
	}
	return records, nil
}

func decodeRecords(r io.Reader) ([]model.Record, error) {
	buffered := bufio.NewReader(r)

	first, err := peekNonSpace(buffered)
	if err == io.EOF {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var records []model.Record
		err = json.NewDecoder(buffered).Decode(&records)
		if err != nil {
			return nil, err
		}
		return records, nil
	}

	records := []model.Record{}
	scanner := bufio.NewScanner(buffered)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record model.Record
		err = json.Unmarshal([]byte(line), &record)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.Peek(1)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(string(b)) != "" {
			return b[0], nil
		}
		_, _ = r.ReadByte()
	}
}
