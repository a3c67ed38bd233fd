// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package supervisor_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackamondo/deskmigrate/internal/adapter"
	"github.com/jackamondo/deskmigrate/internal/catalog"
	"github.com/jackamondo/deskmigrate/internal/metrics"
	"github.com/jackamondo/deskmigrate/internal/store"
	"github.com/jackamondo/deskmigrate/internal/supervisor"
	"github.com/jackamondo/deskmigrate/internal/testlib"
	"github.com/jackamondo/deskmigrate/internal/webhook"
	"github.com/jackamondo/deskmigrate/model"
)

type mockSource struct {
	records map[string][]model.Record
}

func (s *mockSource) Fetch(ctx context.Context, component string, job *model.MigrationJob) ([]model.Record, error) {
	return s.records[component], nil
}

type mockTarget struct {
	created map[string][]model.Record

	// failOn aborts the create of the given (component, source id)
	// pair.
	failOnComponent string
	failOnSourceID  string

	// onCreate runs before every create when set.
	onCreate func(component string, record model.Record)
}

func (t *mockTarget) Create(ctx context.Context, component string, record model.Record, job *model.MigrationJob) (string, error) {
	if t.onCreate != nil {
		t.onCreate(component, record)
	}
	if component == t.failOnComponent && record.SourceID() == t.failOnSourceID {
		return "", errors.Errorf("target rejected record %s", record.SourceID())
	}
	if t.created == nil {
		t.created = map[string][]model.Record{}
	}
	t.created[component] = append(t.created[component], record)
	return "target-" + record.SourceID(), nil
}

func makeJobSupervisor(sqlStore *store.SQLStore, source *mockSource, target *mockTarget, logger log.FieldLogger) *supervisor.JobSupervisor {
	adapters := &adapter.Set{
		Snapshot: adapter.NewSourceRegistry(source),
		Live:     adapter.NewSourceRegistry(source),
		Target:   adapter.NewTargetRegistry(target),
	}
	sender := webhook.NewSender(sqlStore, "test")

	return supervisor.NewJobSupervisor(sqlStore, catalog.Default, adapters, metrics.New(), sender, "instanceID", logger)
}

func superviseUntilDone(t *testing.T, jobSupervisor *supervisor.JobSupervisor, sqlStore *store.SQLStore, jobID string) *model.MigrationJob {
	for i := 0; i < 10; i++ {
		job, err := sqlStore.GetMigrationJob(jobID)
		require.NoError(t, err)
		if job.IsTerminal() {
			return job
		}
		jobSupervisor.Supervise(job)
	}

	job, err := sqlStore.GetMigrationJob(jobID)
	require.NoError(t, err)
	require.True(t, job.IsTerminal(), "job did not reach a terminal state")
	return job
}

func TestJobSupervisorDo(t *testing.T) {
	t.Run("no migration jobs pending work", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, &mockTarget{}, logger)
		err := jobSupervisor.Do()
		require.NoError(t, err)
	})

	t.Run("transitions a requested job", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"groups"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, &mockTarget{}, logger)
		err = jobSupervisor.Do()
		require.NoError(t, err)

		job, err = sqlStore.GetMigrationJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MigrationJobStateValidating, job.State)
	})
}

func TestJobSupervisorSupervise(t *testing.T) {
	t.Run("migrates components in order and records mappings", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		source := &mockSource{records: map[string][]model.Record{
			"groups": {
				{"id": float64(101), "name": "Support"},
				{"id": float64(102), "name": "Billing"},
			},
			"macros": {
				{"id": float64(501), "title": "Close ticket", "group_id": float64(101)},
			},
		}}
		target := &mockTarget{}

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"macros", "groups"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, source, target, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateSucceeded, job.State)
		assert.Equal(t, int64(100), job.Progress)
		assert.NotZero(t, job.CompleteAt)
		assert.Empty(t, job.FailedComponent)

		// Groups precede macros regardless of the requested order.
		require.Len(t, target.created["groups"], 2)
		require.Len(t, target.created["macros"], 1)

		// The macro's group reference was rewritten to the minted id.
		macro := target.created["macros"][0]
		assert.Equal(t, "target-101", macro["group_id"])

		componentMigrations, err := sqlStore.GetComponentMigrations(job.ID)
		require.NoError(t, err)
		require.Len(t, componentMigrations, 2)
		assert.Equal(t, "groups", componentMigrations[0].Component)
		assert.Equal(t, "macros", componentMigrations[1].Component)
		for _, componentMigration := range componentMigrations {
			assert.Equal(t, model.ComponentMigrationStateSucceeded, componentMigration.State)
			assert.NotZero(t, componentMigration.CompleteAt)
		}
		assert.Equal(t, int64(2), componentMigrations[0].SourceRecords)

		mappings, err := sqlStore.GetIDMappings(job.ID)
		require.NoError(t, err)
		require.Len(t, mappings, 3)
	})

	t.Run("progress passes through intermediate values", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		source := &mockSource{records: map[string][]model.Record{
			"groups": {{"id": float64(1), "name": "Support"}},
			"macros": {{"id": float64(2), "title": "Close ticket"}},
		}}

		var progressAtMacros int64 = -1
		target := &mockTarget{}
		target.onCreate = func(component string, record model.Record) {
			if component != "macros" {
				return
			}
			job, err := sqlStore.GetMigrationJobs(&model.MigrationJobFilter{Paging: model.AllPagesNotDeleted()})
			if err == nil && len(job) == 1 {
				progressAtMacros = job[0].Progress
			}
		}

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"groups", "macros"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, source, target, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateSucceeded, job.State)
		assert.Equal(t, int64(50), progressAtMacros)
	})

	t.Run("fails fast on the first failing record", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		source := &mockSource{records: map[string][]model.Record{
			"groups": {{"id": float64(101), "name": "Support"}},
			"macros": {
				{"id": float64(501), "title": "First"},
				{"id": float64(502), "title": "Second"},
				{"id": float64(503), "title": "Third"},
			},
		}}
		target := &mockTarget{
			failOnComponent: "macros",
			failOnSourceID:  "502",
		}

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"groups", "macros"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, source, target, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateFailed, job.State)
		assert.Equal(t, "macros", job.FailedComponent)
		assert.Contains(t, job.Error, "502")
		assert.Equal(t, int64(50), job.Progress)
		assert.NotZero(t, job.CompleteAt)

		// The third macro was never attempted.
		require.Len(t, target.created["macros"], 1)

		componentMigrations, err := sqlStore.GetComponentMigrations(job.ID)
		require.NoError(t, err)
		require.Len(t, componentMigrations, 2)
		assert.Equal(t, model.ComponentMigrationStateSucceeded, componentMigrations[0].State)
		assert.Equal(t, model.ComponentMigrationStateFailed, componentMigrations[1].State)
		assert.Contains(t, componentMigrations[1].Error, "502")

		// Mappings recorded before the failure survive it.
		mappings, err := sqlStore.GetIDMappings(job.ID)
		require.NoError(t, err)
		require.Len(t, mappings, 2)
	})

	t.Run("snapshot job fails validation when snapshot is missing", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		source := &mockSource{}
		target := &mockTarget{}

		job := &model.MigrationJob{
			SourceType: model.SourceTypeSnapshot,
			SnapshotID: "no-such-snapshot",
			Components: []string{"groups"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, source, target, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateFailed, job.State)
		assert.Contains(t, job.Error, "no-such-snapshot")
		assert.Equal(t, int64(0), job.Progress)

		componentMigrations, err := sqlStore.GetComponentMigrations(job.ID)
		require.NoError(t, err)
		assert.Empty(t, componentMigrations)
		assert.Empty(t, target.created)
	})

	t.Run("snapshot job fails validation when components are missing from the snapshot", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		snapshot := &model.Snapshot{
			Name:     "partial",
			ParentID: "instance1",
			Breakdown: model.SnapshotBreakdown{
				"groups": {Records: 1, Path: "groups.json"},
			},
		}
		err := sqlStore.CreateSnapshot(snapshot)
		require.NoError(t, err)

		job := &model.MigrationJob{
			SourceType: model.SourceTypeSnapshot,
			SnapshotID: snapshot.ID,
			Components: []string{"groups", "macros"},
		}
		err = sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, &mockTarget{}, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateFailed, job.State)
		assert.Contains(t, job.Error, "macros")
	})

	t.Run("cancellation finalizes the job as failed", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"groups"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		job.State = model.MigrationJobStateCancellationRequested
		err = sqlStore.UpdateMigrationJobState(job)
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, &mockTarget{}, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateFailed, job.State)
		assert.Contains(t, job.Error, "cancelled")
		assert.NotZero(t, job.CompleteAt)
	})

	t.Run("fails a job whose component rows already exist", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		source := &mockSource{records: map[string][]model.Record{
			"groups": {{"id": float64(101), "name": "Support"}},
		}}
		target := &mockTarget{}

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"groups"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		// Simulate a previous run that died mid loop: the job is back
		// in progress with its first component row already recorded.
		job.State = model.MigrationJobStateInProgress
		err = sqlStore.UpdateMigrationJobState(job)
		require.NoError(t, err)

		err = sqlStore.CreateComponentMigration(&model.ComponentMigration{
			JobID:     job.ID,
			Component: "groups",
			State:     model.ComponentMigrationStateCreating,
		})
		require.NoError(t, err)

		jobSupervisor := makeJobSupervisor(sqlStore, source, target, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateFailed, job.State)
		assert.Equal(t, "groups", job.FailedComponent)
		assert.NotZero(t, job.CompleteAt)
	})

	t.Run("skips a job locked by another server", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		job := &model.MigrationJob{
			SourceType: model.SourceTypeLive,
			Components: []string{"groups"},
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		locked, err := sqlStore.LockMigrationJob(job.ID, "other-server")
		require.NoError(t, err)
		require.True(t, locked)

		jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, &mockTarget{}, logger)
		jobSupervisor.Supervise(job)

		job, err = sqlStore.GetMigrationJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.MigrationJobStateRequested, job.State)
	})

	t.Run("empty component intersection succeeds without work", func(t *testing.T) {
		logger := testlib.MakeLogger(t)
		sqlStore := store.MakeTestSQLStore(t, logger)
		defer store.CloseConnection(t, sqlStore)

		job := &model.MigrationJob{
			SourceType:        model.SourceTypeLive,
			IgnoredComponents: catalog.Default.Names(),
		}
		err := sqlStore.CreateMigrationJob(job)
		require.NoError(t, err)

		target := &mockTarget{}
		jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, target, logger)
		job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

		assert.Equal(t, model.MigrationJobStateSucceeded, job.State)
		assert.Equal(t, int64(100), job.Progress)
		assert.Empty(t, target.created)
	})
}

func TestJobSupervisorUnknownComponent(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := store.MakeTestSQLStore(t, logger)
	defer store.CloseConnection(t, sqlStore)

	job := &model.MigrationJob{
		SourceType: model.SourceTypeLive,
		Components: []string{"groups", "bogus"},
	}
	err := sqlStore.CreateMigrationJob(job)
	require.NoError(t, err)

	jobSupervisor := makeJobSupervisor(sqlStore, &mockSource{}, &mockTarget{}, logger)
	job = superviseUntilDone(t, jobSupervisor, sqlStore, job.ID)

	assert.Equal(t, model.MigrationJobStateFailed, job.State)
	assert.Contains(t, job.Error, "bogus")
}
