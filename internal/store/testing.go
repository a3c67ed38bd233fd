// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	log "github.com/sirupsen/logrus"
)

// MakeTestSQLStore creates a SQLStore on a throwaway sqlite database
// with the schema applied. It lives outside the _test files so that
// other packages' tests can use it.
func MakeTestSQLStore(tb testing.TB, logger log.FieldLogger) *SQLStore {
	dsn := "sqlite://" + filepath.Join(tb.TempDir(), "store.db")
	sqlStore, err := New(dsn, nil, logger)
	require.NoError(tb, err)

	err = sqlStore.Migrate()
	require.NoError(tb, err)

	return sqlStore
}

// MakeTestSQLStoreWithKey is MakeTestSQLStore with credential sealing
// enabled.
func MakeTestSQLStoreWithKey(tb testing.TB, logger log.FieldLogger, key []byte) *SQLStore {
	dsn := "sqlite://" + filepath.Join(tb.TempDir(), "store.db")
	sqlStore, err := New(dsn, key, logger)
	require.NoError(tb, err)

	err = sqlStore.Migrate()
	require.NoError(tb, err)

	return sqlStore
}

// CloseConnection closes the underlying database connection, failing
// the test on error.
func CloseConnection(tb testing.TB, sqlStore *SQLStore) {
	require.NoError(tb, sqlStore.Close())
}
