// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/jackamondo/deskmigrate/model"
)

const (
	snapshotTable = "Snapshot"
)

var snapshotSelect sq.SelectBuilder

func init() {
	snapshotSelect = sq.
		Select(
			"ID", "Name", "ParentID", "Locked", "BreakdownRaw", "CreateAt", "DeleteAt",
		).
		From(snapshotTable)
}

type rawSnapshot struct {
	*model.Snapshot
	BreakdownRaw []byte
}

type rawSnapshots []*rawSnapshot

func (r *rawSnapshot) toSnapshot() (*model.Snapshot, error) {
	if len(r.BreakdownRaw) > 0 {
		err := json.Unmarshal(r.BreakdownRaw, &r.Snapshot.Breakdown)
		if err != nil {
			return nil, err
		}
	}
	return r.Snapshot, nil
}

func (r rawSnapshots) toSnapshots() ([]*model.Snapshot, error) {
	snapshots := make([]*model.Snapshot, 0, len(r))
	for _, raw := range r {
		snapshot, err := raw.toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// CreateSnapshot records new snapshot metadata to the database,
// assigning it a unique ID.
func (sqlStore *SQLStore) CreateSnapshot(snapshot *model.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = model.NewID()
	}
	snapshot.CreateAt = model.GetMillis()

	var breakdownRaw interface{}
	if snapshot.Breakdown != nil {
		data, err := json.Marshal(snapshot.Breakdown)
		if err != nil {
			return errors.Wrap(err, "failed to marshal snapshot breakdown")
		}
		breakdownRaw = data
	}

	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Insert(snapshotTable).
		SetMap(map[string]interface{}{
			"ID":           snapshot.ID,
			"Name":         snapshot.Name,
			"ParentID":     snapshot.ParentID,
			"Locked":       snapshot.Locked,
			"BreakdownRaw": breakdownRaw,
			"CreateAt":     snapshot.CreateAt,
			"DeleteAt":     0,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot")
	}

	return nil
}

// GetSnapshot fetches the given snapshot.
func (sqlStore *SQLStore) GetSnapshot(id string) (*model.Snapshot, error) {
	raw := rawSnapshot{Snapshot: &model.Snapshot{}}
	err := sqlStore.getBuilder(sqlStore.db, &raw, snapshotSelect.Where("ID = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get snapshot")
	}

	return raw.toSnapshot()
}

// GetSnapshots fetches the snapshots matching the filter.
func (sqlStore *SQLStore) GetSnapshots(filter *model.SnapshotFilter) ([]*model.Snapshot, error) {
	builder := snapshotSelect.OrderBy("CreateAt DESC", "ID")
	builder = applyPaging(builder, filter.Paging)

	if filter.ParentID != "" {
		builder = builder.Where("ParentID = ?", filter.ParentID)
	}
	if !filter.IncludeDeleted {
		builder = builder.Where("DeleteAt = 0")
	}

	var raws rawSnapshots
	err := sqlStore.selectBuilder(sqlStore.db, &raws, builder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query snapshots")
	}

	return raws.toSnapshots()
}

// DeleteSnapshot marks the given snapshot as deleted, but does not
// remove the record from the database or the blobs from the store.
func (sqlStore *SQLStore) DeleteSnapshot(id string) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Update(snapshotTable).
		Set("DeleteAt", model.GetMillis()).
		Where("ID = ?", id).
		Where("DeleteAt = 0"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to mark snapshot as deleted")
	}

	return nil
}
