// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// SourceType describes where a migration job reads its source records
// from.
type SourceType string

const (
	// SourceTypeSnapshot reads records from a point-in-time snapshot of
	// the source instance.
	SourceTypeSnapshot SourceType = "snapshot"
	// SourceTypeLive reads records directly from the running source
	// instance.
	SourceTypeLive SourceType = "live"
)

// MigrationJobState is the state of a migration job.
type MigrationJobState string

const (
	// MigrationJobStateRequested marks a job that has been accepted but
	// not yet picked up by a supervisor.
	MigrationJobStateRequested MigrationJobState = "migration-requested"
	// MigrationJobStateValidating marks a job whose source is being
	// validated before any component is migrated.
	MigrationJobStateValidating MigrationJobState = "migration-validating"
	// MigrationJobStateInProgress marks a job whose components are
	// being migrated.
	MigrationJobStateInProgress MigrationJobState = "migration-in-progress"
	// MigrationJobStateCancellationRequested marks a job that was asked
	// to stop at the next component boundary.
	MigrationJobStateCancellationRequested MigrationJobState = "migration-cancellation-requested"
	// MigrationJobStateFailing marks a job that hit a terminal error
	// and is being finalized.
	MigrationJobStateFailing MigrationJobState = "migration-failing"
	// MigrationJobStateSucceeded marks a job whose requested components
	// were all migrated.
	MigrationJobStateSucceeded MigrationJobState = "migration-succeeded"
	// MigrationJobStateFailed marks a job that stopped before all
	// requested components were migrated.
	MigrationJobStateFailed MigrationJobState = "migration-failed"
)

// AllMigrationJobStatesPendingWork is a list of all job states that the
// supervisor will attempt to transition towards terminal on the next
// "tick".
var AllMigrationJobStatesPendingWork = []MigrationJobState{
	MigrationJobStateRequested,
	MigrationJobStateValidating,
	MigrationJobStateInProgress,
	MigrationJobStateCancellationRequested,
	MigrationJobStateFailing,
}

// MigrationJob represents one request to migrate configuration from a
// source helpdesk instance to a target instance.
type MigrationJob struct {
	ID         string
	SourceType SourceType
	SnapshotID string
	Source     *InstanceRef
	Target     *InstanceRef

	// Components is the set of entity types to migrate. When empty,
	// every catalog entry except IgnoredComponents is migrated.
	Components        []string
	IgnoredComponents []string

	State MigrationJobState

	// Progress is 0-100 and only ever increases within a job.
	Progress        int64
	FailedComponent string
	Error           string

	RequestAt      int64
	CompleteAt     int64
	DeleteAt       int64
	LockAcquiredBy *string
	LockAcquiredAt int64
}

// IsTerminal returns true when the job can no longer transition.
func (j *MigrationJob) IsTerminal() bool {
	return j.State == MigrationJobStateSucceeded || j.State == MigrationJobStateFailed
}

// Sanitize removes secrets from the job so it can be returned from the
// API.
func (j *MigrationJob) Sanitize() {
	if j.Source != nil {
		j.Source.Sanitize()
	}
	if j.Target != nil {
		j.Target.Sanitize()
	}
}

// MigrationJobFilter describes the parameters used to constrain a set
// of migration jobs.
type MigrationJobFilter struct {
	Paging
	IDs    []string
	States []MigrationJobState
}

// NewMigrationJobFromReader will create a MigrationJob from an
// io.Reader with JSON data.
func NewMigrationJobFromReader(reader io.Reader) (*MigrationJob, error) {
	var job MigrationJob
	err := json.NewDecoder(reader).Decode(&job)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode migration job")
	}

	return &job, nil
}

// NewMigrationJobsFromReader will create a slice of MigrationJobs from
// an io.Reader with JSON data.
func NewMigrationJobsFromReader(reader io.Reader) ([]*MigrationJob, error) {
	jobs := []*MigrationJob{}
	err := json.NewDecoder(reader).Decode(&jobs)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode migration jobs")
	}

	return jobs, nil
}
