// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationAssets embed.FS

// Migrate runs all pending schema migrations from the embedded SQL
// files.
func (sqlStore *SQLStore) Migrate() error {
	source, err := iofs.New(migrationAssets, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to create migration source")
	}

	var driver database.Driver
	switch sqlStore.db.DriverName() {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(sqlStore.db.DB, &sqlite3.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(sqlStore.db.DB, &postgres.Config{})
	default:
		return errors.Errorf("no migration driver for %q", sqlStore.db.DriverName())
	}
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, sqlStore.db.DriverName(), driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrator")
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "failed to apply schema migrations")
	}

	sqlStore.logger.Debug("Database schema is up to date")
	return nil
}
