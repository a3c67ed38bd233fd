// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package store provides the SQL persistence layer of the migration
// server: jobs, per-job component states, the durable id-mapping audit
// table, snapshot metadata and webhooks.
package store

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	// Database drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore abstracts access to the database.
type SQLStore struct {
	db     *sqlx.DB
	sealer *sealer
	logger log.FieldLogger
}

// New constructs a new instance of SQLStore. The DSN scheme selects
// the driver: sqlite:// or postgres://. When an encryption key is
// given, instance references (which carry credentials) are sealed at
// rest.
func New(dsn string, encryptionKey []byte, logger log.FieldLogger) (*SQLStore, error) {
	driverName, dataSourceName, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to database %s", driverName)
	}

	// Produce dedicated columns for the raw-column structs instead of
	// lowercasing field names.
	db.MapperFunc(func(s string) string { return s })

	if driverName == "sqlite3" {
		// Serialize access; sqlite does not tolerate concurrent writers
		// on a shared in-memory database.
		db.SetMaxOpenConns(1)
	}

	var s *sealer
	if len(encryptionKey) > 0 {
		s, err = newSealer(encryptionKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize credential sealer")
		}
	}

	return &SQLStore{
		db:     db,
		sealer: s,
		logger: logger,
	}, nil
}

func parseDSN(dsn string) (driverName, dataSourceName string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to parse database DSN")
	}

	switch u.Scheme {
	case "sqlite", "sqlite3":
		return "sqlite3", strings.TrimPrefix(dsn, u.Scheme+"://"), nil
	case "postgres", "postgresql":
		return "postgres", dsn, nil
	default:
		return "", "", errors.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// Close closes the underlying database connection.
func (sqlStore *SQLStore) Close() error {
	return sqlStore.db.Close()
}

type queryer interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type builder interface {
	ToSql() (string, []interface{}, error)
}

// getBuilder queries for a single row, writing the result into dest.
func (sqlStore *SQLStore) getBuilder(q queryer, dest interface{}, b builder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build sql")
	}

	return q.Get(dest, sqlStore.db.Rebind(query), args...)
}

// selectBuilder queries for multiple rows, writing the result into
// dest.
func (sqlStore *SQLStore) selectBuilder(q queryer, dest interface{}, b builder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build sql")
	}

	return q.Select(dest, sqlStore.db.Rebind(query), args...)
}

// execBuilder executes the given statement.
func (sqlStore *SQLStore) execBuilder(e execer, b builder) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build sql")
	}

	return e.Exec(sqlStore.db.Rebind(query), args...)
}
