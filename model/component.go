// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

// Reference declares a foreign-key-shaped field of a component's
// records. The field holds the id (or ids) of an entity of the Target
// type, minted by the source instance, and must be rewritten to the
// corresponding target-instance id before creation.
type Reference struct {
	Field  string
	Target string
	// List is true when the field holds a list of ids rather than a
	// single id.
	List bool
}

// Component is one migratable entity type together with its statically
// known reference fields.
type Component struct {
	Name string
	Refs []Reference
}

// ComponentMigrationState is the state of a single component within a
// migration job.
type ComponentMigrationState string

const (
	// ComponentMigrationStatePending marks a component that has been
	// reached but not started.
	ComponentMigrationStatePending ComponentMigrationState = "component-pending"
	// ComponentMigrationStateFetching marks a component whose source
	// records are being fetched.
	ComponentMigrationStateFetching ComponentMigrationState = "component-fetching"
	// ComponentMigrationStateTranslating marks a component whose record
	// references are being rewritten.
	ComponentMigrationStateTranslating ComponentMigrationState = "component-translating"
	// ComponentMigrationStateCreating marks a component whose records
	// are being created on the target instance.
	ComponentMigrationStateCreating ComponentMigrationState = "component-creating"
	// ComponentMigrationStateSucceeded marks a fully migrated
	// component.
	ComponentMigrationStateSucceeded ComponentMigrationState = "component-succeeded"
	// ComponentMigrationStateFailed marks a component that aborted.
	ComponentMigrationStateFailed ComponentMigrationState = "component-failed"
)

// ComponentMigration tracks one component of one migration job. It is
// created when the supervisor reaches that component and is immutable
// once succeeded or failed.
type ComponentMigration struct {
	ID            string
	JobID         string
	Component     string
	State         ComponentMigrationState
	SourceRecords int64
	Error         string
	StartAt       int64
	CompleteAt    int64
}
