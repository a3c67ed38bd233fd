// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package supervisor

import (
	log "github.com/sirupsen/logrus"
)

type migrationJobLockStore interface {
	LockMigrationJob(jobID, lockerID string) (bool, error)
	UnlockMigrationJob(jobID, lockerID string, force bool) (bool, error)
}

type migrationJobLock struct {
	jobID    string
	lockerID string
	store    migrationJobLockStore
	logger   log.FieldLogger
}

func newMigrationJobLock(jobID, lockerID string, store migrationJobLockStore, logger log.FieldLogger) *migrationJobLock {
	return &migrationJobLock{
		jobID:    jobID,
		lockerID: lockerID,
		store:    store,
		logger:   logger,
	}
}

func (l *migrationJobLock) TryLock() bool {
	locked, err := l.store.LockMigrationJob(l.jobID, l.lockerID)
	if err != nil {
		l.logger.WithError(err).Error("failed to lock migration job")
		return false
	}

	return locked
}

func (l *migrationJobLock) Unlock() {
	unlocked, err := l.store.UnlockMigrationJob(l.jobID, l.lockerID, false)
	if err != nil {
		l.logger.WithError(err).Error("failed to unlock migration job")
	} else if !unlocked {
		l.logger.Error("failed to release lock for migration job")
	}
}
