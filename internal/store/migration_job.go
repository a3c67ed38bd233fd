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
	migrationJobTable = "MigrationJob"
)

var migrationJobSelect sq.SelectBuilder

func init() {
	migrationJobSelect = sq.
		Select(
			"ID",
			"SourceType",
			"SnapshotID",
			"SourceInstanceRaw",
			"TargetInstanceRaw",
			"ComponentsRaw",
			"IgnoredComponentsRaw",
			"State",
			"Progress",
			"FailedComponent",
			"Error",
			"RequestAt",
			"CompleteAt",
			"DeleteAt",
			"LockAcquiredBy",
			"LockAcquiredAt",
		).
		From(migrationJobTable)
}

type rawMigrationJob struct {
	*model.MigrationJob
	SourceInstanceRaw    []byte
	TargetInstanceRaw    []byte
	ComponentsRaw        []byte
	IgnoredComponentsRaw []byte
}

type rawMigrationJobs []*rawMigrationJob

func (sqlStore *SQLStore) toMigrationJob(r *rawMigrationJob) (*model.MigrationJob, error) {
	// We only need to set values that are converted from a raw database
	// format.
	if len(r.SourceInstanceRaw) > 0 {
		plain, err := sqlStore.openRaw(r.SourceInstanceRaw)
		if err != nil {
			return nil, err
		}
		instance := model.InstanceRef{}
		err = json.Unmarshal(plain, &instance)
		if err != nil {
			return nil, err
		}
		r.MigrationJob.Source = &instance
	}
	if len(r.TargetInstanceRaw) > 0 {
		plain, err := sqlStore.openRaw(r.TargetInstanceRaw)
		if err != nil {
			return nil, err
		}
		instance := model.InstanceRef{}
		err = json.Unmarshal(plain, &instance)
		if err != nil {
			return nil, err
		}
		r.MigrationJob.Target = &instance
	}
	if len(r.ComponentsRaw) > 0 {
		err := json.Unmarshal(r.ComponentsRaw, &r.MigrationJob.Components)
		if err != nil {
			return nil, err
		}
	}
	if len(r.IgnoredComponentsRaw) > 0 {
		err := json.Unmarshal(r.IgnoredComponentsRaw, &r.MigrationJob.IgnoredComponents)
		if err != nil {
			return nil, err
		}
	}

	return r.MigrationJob, nil
}

func (sqlStore *SQLStore) toMigrationJobs(r rawMigrationJobs) ([]*model.MigrationJob, error) {
	jobs := make([]*model.MigrationJob, 0, len(r))
	for _, raw := range r {
		job, err := sqlStore.toMigrationJob(raw)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (sqlStore *SQLStore) migrationJobRawColumns(job *model.MigrationJob) (map[string]interface{}, error) {
	raws := map[string]interface{}{
		"SourceInstanceRaw":    nil,
		"TargetInstanceRaw":    nil,
		"ComponentsRaw":        nil,
		"IgnoredComponentsRaw": nil,
	}

	if job.Source != nil {
		data, err := json.Marshal(job.Source)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal source instance")
		}
		sealed, err := sqlStore.sealRaw(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to seal source instance")
		}
		raws["SourceInstanceRaw"] = sealed
	}
	if job.Target != nil {
		data, err := json.Marshal(job.Target)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal target instance")
		}
		sealed, err := sqlStore.sealRaw(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to seal target instance")
		}
		raws["TargetInstanceRaw"] = sealed
	}
	if len(job.Components) > 0 {
		data, err := json.Marshal(job.Components)
		if err != nil {
			return nil, err
		}
		raws["ComponentsRaw"] = data
	}
	if len(job.IgnoredComponents) > 0 {
		data, err := json.Marshal(job.IgnoredComponents)
		if err != nil {
			return nil, err
		}
		raws["IgnoredComponentsRaw"] = data
	}

	return raws, nil
}

// CreateMigrationJob records a new migration job to the database,
// assigning it a unique ID.
func (sqlStore *SQLStore) CreateMigrationJob(job *model.MigrationJob) error {
	job.ID = model.NewID()
	job.RequestAt = model.GetMillis()
	if job.State == "" {
		job.State = model.MigrationJobStateRequested
	}

	raws, err := sqlStore.migrationJobRawColumns(job)
	if err != nil {
		return err
	}

	columns := map[string]interface{}{
		"ID":              job.ID,
		"SourceType":      job.SourceType,
		"SnapshotID":      job.SnapshotID,
		"State":           job.State,
		"Progress":        job.Progress,
		"FailedComponent": job.FailedComponent,
		"Error":           job.Error,
		"RequestAt":       job.RequestAt,
		"CompleteAt":      0,
		"DeleteAt":        0,
		"LockAcquiredBy":  nil,
		"LockAcquiredAt":  0,
	}
	for column, value := range raws {
		columns[column] = value
	}

	_, err = sqlStore.execBuilder(sqlStore.db, sq.
		Insert(migrationJobTable).
		SetMap(columns),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create migration job")
	}

	return nil
}

// GetMigrationJob fetches the given migration job.
func (sqlStore *SQLStore) GetMigrationJob(id string) (*model.MigrationJob, error) {
	raw := rawMigrationJob{MigrationJob: &model.MigrationJob{}}
	err := sqlStore.getBuilder(sqlStore.db, &raw, migrationJobSelect.Where("ID = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get migration job")
	}

	return sqlStore.toMigrationJob(&raw)
}

// GetMigrationJobs fetches the migration jobs matching the filter.
func (sqlStore *SQLStore) GetMigrationJobs(filter *model.MigrationJobFilter) ([]*model.MigrationJob, error) {
	builder := migrationJobSelect.OrderBy("RequestAt DESC", "ID")
	builder = applyPaging(builder, filter.Paging)

	if len(filter.IDs) > 0 {
		builder = builder.Where(sq.Eq{"ID": filter.IDs})
	}
	if len(filter.States) > 0 {
		builder = builder.Where(sq.Eq{"State": filter.States})
	}
	if !filter.IncludeDeleted {
		builder = builder.Where("DeleteAt = 0")
	}

	var raws rawMigrationJobs
	err := sqlStore.selectBuilder(sqlStore.db, &raws, builder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query migration jobs")
	}

	return sqlStore.toMigrationJobs(raws)
}

// GetUnlockedMigrationJobsPendingWork returns unlocked jobs in a
// pending-work state, oldest first.
func (sqlStore *SQLStore) GetUnlockedMigrationJobsPendingWork() ([]*model.MigrationJob, error) {
	builder := migrationJobSelect.
		Where(sq.Eq{"State": model.AllMigrationJobStatesPendingWork}).
		Where("LockAcquiredAt = 0").
		Where("DeleteAt = 0").
		OrderBy("RequestAt ASC")

	var raws rawMigrationJobs
	err := sqlStore.selectBuilder(sqlStore.db, &raws, builder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query migration jobs pending work")
	}

	return sqlStore.toMigrationJobs(raws)
}

// UpdateMigrationJobState updates the state of the given migration
// job.
func (sqlStore *SQLStore) UpdateMigrationJobState(job *model.MigrationJob) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Update(migrationJobTable).
		SetMap(map[string]interface{}{
			"State": job.State,
		}).
		Where("ID = ?", job.ID),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update migration job state")
	}

	return nil
}

// UpdateMigrationJob updates the mutable data of the given migration
// job: progress, failure details and completion time.
func (sqlStore *SQLStore) UpdateMigrationJob(job *model.MigrationJob) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Update(migrationJobTable).
		SetMap(map[string]interface{}{
			"Progress":        job.Progress,
			"FailedComponent": job.FailedComponent,
			"Error":           job.Error,
			"CompleteAt":      job.CompleteAt,
		}).
		Where("ID = ?", job.ID),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update migration job")
	}

	return nil
}

// LockMigrationJob marks the given migration job as locked for
// exclusive use by the caller.
func (sqlStore *SQLStore) LockMigrationJob(jobID, lockerID string) (bool, error) {
	result, err := sqlStore.execBuilder(sqlStore.db, sq.
		Update(migrationJobTable).
		SetMap(map[string]interface{}{
			"LockAcquiredBy": lockerID,
			"LockAcquiredAt": model.GetMillis(),
		}).
		Where("ID = ?", jobID).
		Where("LockAcquiredAt = 0"),
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to lock migration job")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to count locked rows")
	}

	return count > 0, nil
}

// UnlockMigrationJob releases a lock previously acquired against the
// caller.
func (sqlStore *SQLStore) UnlockMigrationJob(jobID, lockerID string, force bool) (bool, error) {
	builder := sq.
		Update(migrationJobTable).
		SetMap(map[string]interface{}{
			"LockAcquiredBy": nil,
			"LockAcquiredAt": 0,
		}).
		Where("ID = ?", jobID)
	if force {
		builder = builder.Where("LockAcquiredAt <> 0")
	} else {
		builder = builder.Where("LockAcquiredBy = ?", lockerID)
	}

	result, err := sqlStore.execBuilder(sqlStore.db, builder)
	if err != nil {
		return false, errors.Wrap(err, "failed to unlock migration job")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to count unlocked rows")
	}

	return count > 0, nil
}

func applyPaging(builder sq.SelectBuilder, paging model.Paging) sq.SelectBuilder {
	if paging.PerPage == model.AllPerPage {
		return builder
	}
	return builder.
		Limit(uint64(paging.PerPage)).
		Offset(uint64(paging.Page * paging.PerPage))
}
