// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package supervisor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jackamondo/deskmigrate/internal/adapter"
	"github.com/jackamondo/deskmigrate/internal/catalog"
	"github.com/jackamondo/deskmigrate/internal/metrics"
	"github.com/jackamondo/deskmigrate/internal/migration"
	"github.com/jackamondo/deskmigrate/internal/webhook"
	"github.com/jackamondo/deskmigrate/model"
)

// migrationJobStore abstracts the database operations required by the
// supervisor.
type migrationJobStore interface {
	GetUnlockedMigrationJobsPendingWork() ([]*model.MigrationJob, error)
	GetMigrationJob(id string) (*model.MigrationJob, error)
	UpdateMigrationJobState(job *model.MigrationJob) error
	UpdateMigrationJob(job *model.MigrationJob) error
	migrationJobLockStore

	GetSnapshot(id string) (*model.Snapshot, error)

	CreateComponentMigration(componentMigration *model.ComponentMigration) error
	UpdateComponentMigration(componentMigration *model.ComponentMigration) error

	CreateIDMapping(mapping *model.IDMapping) error

	GetWebhooks(filter *model.WebhookFilter) ([]*model.Webhook, error)
}

// JobSupervisor finds migration jobs pending work and drives them
// towards a terminal state.
type JobSupervisor struct {
	store      migrationJobStore
	catalog    *catalog.Catalog
	adapters   *adapter.Set
	metrics    *metrics.Metrics
	sender     *webhook.Sender
	instanceID string
	logger     log.FieldLogger
}

// NewJobSupervisor creates a new JobSupervisor.
func NewJobSupervisor(
	store migrationJobStore,
	cat *catalog.Catalog,
	adapters *adapter.Set,
	m *metrics.Metrics,
	sender *webhook.Sender,
	instanceID string,
	logger log.FieldLogger) *JobSupervisor {
	return &JobSupervisor{
		store:      store,
		catalog:    cat,
		adapters:   adapters,
		metrics:    m,
		sender:     sender,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Shutdown performs graceful shutdown tasks for the job supervisor.
func (s *JobSupervisor) Shutdown() {
	s.logger.Debug("Shutting down migration job supervisor")
}

// Do looks for work to be done on any pending migration jobs and
// attempts to schedule the required work.
func (s *JobSupervisor) Do() error {
	jobs, err := s.store.GetUnlockedMigrationJobsPendingWork()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to query for migration jobs pending work")
		return nil
	}

	for _, job := range jobs {
		s.Supervise(job)
	}

	return nil
}

// Supervise schedules the required work on the given migration job.
func (s *JobSupervisor) Supervise(job *model.MigrationJob) {
	logger := s.logger.WithFields(log.Fields{
		"migrationJob": job.ID,
	})

	lock := newMigrationJobLock(job.ID, s.instanceID, s.store, logger)
	if !lock.TryLock() {
		return
	}
	defer lock.Unlock()

	// Before working on the job, it is crucial that we ensure that it
	// was not updated to a new state by another server.
	originalState := job.State
	job, err := s.store.GetMigrationJob(job.ID)
	if err != nil {
		logger.WithError(err).Errorf("Failed to get refreshed migration job")
		return
	}
	if job.State != originalState {
		logger.WithField("oldJobState", originalState).
			WithField("newJobState", job.State).
			Warn("Another server has worked on this migration job; skipping...")
		return
	}

	logger.Debugf("Supervising migration job in state %s", job.State)

	newState := s.transitionJob(job, logger)

	job, err = s.store.GetMigrationJob(job.ID)
	if err != nil {
		logger.WithError(err).Errorf("Failed to get migration job and thus persist state %s", newState)
		return
	}

	if job.State == newState {
		return
	}

	oldState := job.State
	job.State = newState

	err = s.store.UpdateMigrationJobState(job)
	if err != nil {
		logger.WithError(err).Errorf("Failed to set migration job state to %s", newState)
		return
	}

	s.sender.SendMigrationJobWebhook(job, string(oldState), logger)

	logger.Debugf("Transitioned migration job from %s to %s", oldState, job.State)
}

// transitionJob works with the given migration job to transition it
// towards a terminal state.
func (s *JobSupervisor) transitionJob(job *model.MigrationJob, logger log.FieldLogger) model.MigrationJobState {
	switch job.State {
	case model.MigrationJobStateRequested:
		s.metrics.JobsStarted.Inc()
		logger.WithField("sourceType", job.SourceType).Info("Picked up new migration job")
		return model.MigrationJobStateValidating

	case model.MigrationJobStateValidating:
		return s.validateSource(job, logger)

	case model.MigrationJobStateInProgress:
		return s.runMigration(job, logger)

	case model.MigrationJobStateCancellationRequested:
		s.setJobError(job, &migration.CancellationError{}, "", logger)
		return model.MigrationJobStateFailing

	case model.MigrationJobStateFailing:
		return s.failJob(job, logger)

	default:
		logger.Warnf("Found migration job pending work in unexpected state %s", job.State)
		return job.State
	}
}

// validateSource checks the requested components against the catalog
// and, for snapshot jobs, the snapshot against the required
// components. No component is migrated before validation passes.
func (s *JobSupervisor) validateSource(job *model.MigrationJob, logger log.FieldLogger) model.MigrationJobState {
	components, err := s.catalog.Resolve(job.Components, job.IgnoredComponents)
	if err != nil {
		logger.WithError(err).Warn("Migration job failed validation")
		s.setJobError(job, err, "", logger)
		return model.MigrationJobStateFailing
	}

	if job.SourceType == model.SourceTypeSnapshot {
		snapshot, err := s.store.GetSnapshot(job.SnapshotID)
		if err != nil {
			logger.WithError(err).Error("Failed to look up snapshot")
			return job.State
		}
		if snapshot == nil {
			err = &migration.SnapshotError{Kind: migration.SnapshotNotFound, SnapshotID: job.SnapshotID}
		} else {
			err = migration.ValidateSnapshot(snapshot, components)
		}
		if err != nil {
			logger.WithError(err).Warn("Snapshot failed validation")
			s.setJobError(job, err, "", logger)
			return model.MigrationJobStateFailing
		}
	}

	logger.Debugf("Validated migration source for %d component(s)", len(components))

	return model.MigrationJobStateInProgress
}

// runMigration migrates the job's components in catalog order,
// stopping at the first failure. The translation table lives for the
// duration of this run only; its mappings are mirrored to the store as
// a durable audit trail.
func (s *JobSupervisor) runMigration(job *model.MigrationJob, logger log.FieldLogger) model.MigrationJobState {
	components, err := s.catalog.Resolve(job.Components, job.IgnoredComponents)
	if err != nil {
		s.setJobError(job, err, "", logger)
		return model.MigrationJobStateFailing
	}

	sources, err := s.adapters.SourceFor(job.SourceType)
	if err != nil {
		s.setJobError(job, err, "", logger)
		return model.MigrationJobStateFailing
	}

	translator := migration.NewTranslator(job.ID, s.store, logger)
	ctx := context.Background()
	total := len(components)

	for i, name := range components {
		if i > 0 && s.cancellationRequested(job.ID, logger) {
			logger.Infof("Migration job cancelled before component %s", name)
			s.setJobError(job, &migration.CancellationError{}, "", logger)
			return model.MigrationJobStateFailing
		}

		component, found := s.catalog.Get(name)
		if !found {
			s.setJobError(job, migration.NewValidationErrorf("unknown component %q", name), name, logger)
			return model.MigrationJobStateFailing
		}

		componentMigration := &model.ComponentMigration{
			JobID:     job.ID,
			Component: name,
			State:     model.ComponentMigrationStatePending,
		}
		// A create collision means a previous run of this job already
		// started the component. Jobs do not resume, so fail cleanly
		// rather than retrying every tick.
		err = s.store.CreateComponentMigration(componentMigration)
		if err != nil {
			logger.WithError(err).Errorf("Failed to record component migration for %s", name)
			s.setJobError(job, migration.Categorize(err), name, logger)
			return model.MigrationJobStateFailing
		}

		logger.Infof("Migrating component %s (%d of %d)", name, i+1, total)

		migrator := migration.NewMigrator(sources.For(name), s.adapters.Target.For(name), logger)
		start := time.Now()
		count, err := migrator.Run(ctx, job, component, translator, func(state model.ComponentMigrationState, sourceRecords int) {
			componentMigration.State = state
			componentMigration.SourceRecords = int64(sourceRecords)
			updateErr := s.store.UpdateComponentMigration(componentMigration)
			if updateErr != nil {
				logger.WithError(updateErr).Warnf("Failed to update component migration stage for %s", name)
			}
		})
		if err != nil {
			err = migration.Categorize(err)
			logger.WithError(err).Errorf("Failed to migrate component %s", name)

			componentMigration.State = model.ComponentMigrationStateFailed
			componentMigration.Error = err.Error()
			componentMigration.CompleteAt = model.GetMillis()
			updateErr := s.store.UpdateComponentMigration(componentMigration)
			if updateErr != nil {
				logger.WithError(updateErr).Warnf("Failed to record component migration failure for %s", name)
			}

			s.setJobError(job, err, name, logger)
			return model.MigrationJobStateFailing
		}

		componentMigration.State = model.ComponentMigrationStateSucceeded
		componentMigration.SourceRecords = int64(count)
		componentMigration.CompleteAt = model.GetMillis()
		err = s.store.UpdateComponentMigration(componentMigration)
		if err != nil {
			logger.WithError(err).Warnf("Failed to record component migration success for %s", name)
		}

		s.metrics.RecordsMigrated.WithLabelValues(name).Add(float64(count))
		s.metrics.ComponentDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		job.Progress = int64(100 * (i + 1) / total)
		err = s.store.UpdateMigrationJob(job)
		if err != nil {
			logger.WithError(err).Warn("Failed to persist migration job progress")
		}
		s.sender.SendProgressWebhook(job, name, logger)

		logger.Infof("Migrated component %s: %d record(s)", name, count)
	}

	job.Progress = 100
	job.CompleteAt = model.GetMillis()
	err = s.store.UpdateMigrationJob(job)
	if err != nil {
		logger.WithError(err).Error("Failed to finalize migration job")
		return job.State
	}

	s.metrics.JobsSucceeded.Inc()
	logger.Infof("Migration job finished: %d mapping(s) recorded", translator.Len())

	return model.MigrationJobStateSucceeded
}

// failJob finalizes a failing job.
func (s *JobSupervisor) failJob(job *model.MigrationJob, logger log.FieldLogger) model.MigrationJobState {
	job.CompleteAt = model.GetMillis()
	err := s.store.UpdateMigrationJob(job)
	if err != nil {
		logger.WithError(err).Error("Failed to finalize failing migration job")
		return job.State
	}

	s.metrics.JobsFailed.Inc()

	return model.MigrationJobStateFailed
}

// cancellationRequested re-reads the job to observe cancellations
// issued while a component was migrating. Cancellation only takes
// effect at component boundaries.
func (s *JobSupervisor) cancellationRequested(jobID string, logger log.FieldLogger) bool {
	refreshed, err := s.store.GetMigrationJob(jobID)
	if err != nil {
		logger.WithError(err).Warn("Failed to refresh migration job for cancellation check")
		return false
	}

	return refreshed != nil && refreshed.State == model.MigrationJobStateCancellationRequested
}

// setJobError records the failure details on the job without changing
// its state.
func (s *JobSupervisor) setJobError(job *model.MigrationJob, err error, failedComponent string, logger log.FieldLogger) {
	job.Error = err.Error()
	if failedComponent != "" {
		job.FailedComponent = failedComponent
	}

	updateErr := s.store.UpdateMigrationJob(job)
	if updateErr != nil {
		logger.WithError(updateErr).Error("Failed to record migration job error")
	}
}
