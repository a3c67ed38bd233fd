// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/jackamondo/deskmigrate/model"
)

const (
	componentMigrationTable = "ComponentMigration"
)

var componentMigrationSelect sq.SelectBuilder

func init() {
	componentMigrationSelect = sq.
		Select(
			"ID", "JobID", "Component", "State", "SourceRecords", "Error", "StartAt", "CompleteAt",
		).
		From(componentMigrationTable)
}

// CreateComponentMigration records a new component migration to the
// database, assigning it a unique ID.
func (sqlStore *SQLStore) CreateComponentMigration(componentMigration *model.ComponentMigration) error {
	componentMigration.ID = model.NewID()
	componentMigration.StartAt = model.GetMillis()

	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Insert(componentMigrationTable).
		SetMap(map[string]interface{}{
			"ID":            componentMigration.ID,
			"JobID":         componentMigration.JobID,
			"Component":     componentMigration.Component,
			"State":         componentMigration.State,
			"SourceRecords": componentMigration.SourceRecords,
			"Error":         componentMigration.Error,
			"StartAt":       componentMigration.StartAt,
			"CompleteAt":    0,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create component migration")
	}

	return nil
}

// UpdateComponentMigration updates the given component migration.
func (sqlStore *SQLStore) UpdateComponentMigration(componentMigration *model.ComponentMigration) error {
	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Update(componentMigrationTable).
		SetMap(map[string]interface{}{
			"State":         componentMigration.State,
			"SourceRecords": componentMigration.SourceRecords,
			"Error":         componentMigration.Error,
			"CompleteAt":    componentMigration.CompleteAt,
		}).
		Where("ID = ?", componentMigration.ID),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update component migration")
	}

	return nil
}

// GetComponentMigrations fetches the component migrations of the given
// job in the order they were started.
func (sqlStore *SQLStore) GetComponentMigrations(jobID string) ([]*model.ComponentMigration, error) {
	var componentMigrations []*model.ComponentMigration
	err := sqlStore.selectBuilder(sqlStore.db, &componentMigrations,
		componentMigrationSelect.
			Where("JobID = ?", jobID).
			OrderBy("StartAt ASC", "ID ASC"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query component migrations")
	}

	return componentMigrations, nil
}
