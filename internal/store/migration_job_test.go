// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackamondo/deskmigrate/internal/testlib"
	"github.com/jackamondo/deskmigrate/model"
)

func TestCreateMigrationJob(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	job := &model.MigrationJob{
		SourceType: model.SourceTypeSnapshot,
		SnapshotID: "snapshot1",
		Source: &model.InstanceRef{
			Subdomain:   "acme-source",
			Credentials: model.Credentials{"email": "admin@acme.test", "api_token": "secret"},
		},
		Target: &model.InstanceRef{
			Subdomain: "acme-target",
		},
		Components: []string{"groups", "macros"},
	}

	err := sqlStore.CreateMigrationJob(job)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.NotZero(t, job.RequestAt)
	require.Equal(t, model.MigrationJobStateRequested, job.State)

	fetched, err := sqlStore.GetMigrationJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, job.ID, fetched.ID)
	assert.Equal(t, model.SourceTypeSnapshot, fetched.SourceType)
	assert.Equal(t, "snapshot1", fetched.SnapshotID)
	assert.Equal(t, []string{"groups", "macros"}, fetched.Components)
	require.NotNil(t, fetched.Source)
	assert.Equal(t, "acme-source", fetched.Source.Subdomain)
	assert.Equal(t, "secret", fetched.Source.Credentials.Token())
}

func TestGetUnknownMigrationJob(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	job, err := sqlStore.GetMigrationJob("unknown")
	require.NoError(t, err)
	require.Nil(t, job)
}

func TestGetMigrationJobs(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	job1 := &model.MigrationJob{SourceType: model.SourceTypeLive}
	err := sqlStore.CreateMigrationJob(job1)
	require.NoError(t, err)

	job2 := &model.MigrationJob{SourceType: model.SourceTypeLive}
	err = sqlStore.CreateMigrationJob(job2)
	require.NoError(t, err)

	job2.State = model.MigrationJobStateSucceeded
	err = sqlStore.UpdateMigrationJobState(job2)
	require.NoError(t, err)

	jobs, err := sqlStore.GetMigrationJobs(&model.MigrationJobFilter{Paging: model.AllPagesNotDeleted()})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	jobs, err = sqlStore.GetMigrationJobs(&model.MigrationJobFilter{
		Paging: model.AllPagesNotDeleted(),
		States: []model.MigrationJobState{model.MigrationJobStateSucceeded},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job2.ID, jobs[0].ID)

	jobs, err = sqlStore.GetMigrationJobs(&model.MigrationJobFilter{
		Paging: model.AllPagesNotDeleted(),
		IDs:    []string{job1.ID},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job1.ID, jobs[0].ID)
}

func TestGetUnlockedMigrationJobsPendingWork(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	pending := &model.MigrationJob{SourceType: model.SourceTypeLive}
	err := sqlStore.CreateMigrationJob(pending)
	require.NoError(t, err)

	finished := &model.MigrationJob{SourceType: model.SourceTypeLive}
	err = sqlStore.CreateMigrationJob(finished)
	require.NoError(t, err)
	finished.State = model.MigrationJobStateFailed
	err = sqlStore.UpdateMigrationJobState(finished)
	require.NoError(t, err)

	jobs, err := sqlStore.GetUnlockedMigrationJobsPendingWork()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, pending.ID, jobs[0].ID)

	locked, err := sqlStore.LockMigrationJob(pending.ID, "locker")
	require.NoError(t, err)
	require.True(t, locked)

	jobs, err = sqlStore.GetUnlockedMigrationJobsPendingWork()
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestLockMigrationJob(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	job := &model.MigrationJob{SourceType: model.SourceTypeLive}
	err := sqlStore.CreateMigrationJob(job)
	require.NoError(t, err)

	locked, err := sqlStore.LockMigrationJob(job.ID, "locker1")
	require.NoError(t, err)
	require.True(t, locked)

	// A second locker must not steal the lock.
	locked, err = sqlStore.LockMigrationJob(job.ID, "locker2")
	require.NoError(t, err)
	require.False(t, locked)

	// Only the owner can unlock without force.
	unlocked, err := sqlStore.UnlockMigrationJob(job.ID, "locker2", false)
	require.NoError(t, err)
	require.False(t, unlocked)

	unlocked, err = sqlStore.UnlockMigrationJob(job.ID, "locker1", false)
	require.NoError(t, err)
	require.True(t, unlocked)

	locked, err = sqlStore.LockMigrationJob(job.ID, "locker2")
	require.NoError(t, err)
	require.True(t, locked)

	unlocked, err = sqlStore.UnlockMigrationJob(job.ID, "locker1", true)
	require.NoError(t, err)
	require.True(t, unlocked)
}

func TestUpdateMigrationJob(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	job := &model.MigrationJob{SourceType: model.SourceTypeLive}
	err := sqlStore.CreateMigrationJob(job)
	require.NoError(t, err)

	job.Progress = 50
	job.FailedComponent = "macros"
	job.Error = "create failed"
	job.CompleteAt = model.GetMillis()
	err = sqlStore.UpdateMigrationJob(job)
	require.NoError(t, err)

	fetched, err := sqlStore.GetMigrationJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), fetched.Progress)
	assert.Equal(t, "macros", fetched.FailedComponent)
	assert.Equal(t, "create failed", fetched.Error)
	assert.Equal(t, job.CompleteAt, fetched.CompleteAt)
}

func TestMigrationJobCredentialsSealedAtRest(t *testing.T) {
	logger := testlib.MakeLogger(t)
	key := []byte("0123456789abcdef0123456789abcdef")
	sqlStore := MakeTestSQLStoreWithKey(t, logger, key)
	defer CloseConnection(t, sqlStore)

	job := &model.MigrationJob{
		SourceType: model.SourceTypeLive,
		Source: &model.InstanceRef{
			Subdomain:   "acme-source",
			Credentials: model.Credentials{"api_token": "supersecret"},
		},
	}
	err := sqlStore.CreateMigrationJob(job)
	require.NoError(t, err)

	var stored string
	err = sqlStore.db.Get(&stored, "SELECT SourceInstanceRaw FROM MigrationJob WHERE ID = ?", job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, sealedPrefix))
	assert.NotContains(t, stored, "supersecret")

	fetched, err := sqlStore.GetMigrationJob(job.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.Source)
	assert.Equal(t, "supersecret", fetched.Source.Credentials.Token())
}
