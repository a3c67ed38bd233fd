// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackamondo/deskmigrate/internal/migration"
	"github.com/jackamondo/deskmigrate/model"
)

func validSnapshot() *model.Snapshot {
	return &model.Snapshot{
		ID:       "snap1",
		Name:     "nightly",
		ParentID: "src1",
		Breakdown: model.SnapshotBreakdown{
			"groups":        {Records: 3, Path: "snap1/groups.ndjson"},
			"ticket_fields": {Records: 12, Path: "snap1/ticket_fields.ndjson"},
			"ticket_forms":  {Records: 2, Path: "snap1/ticket_forms.ndjson"},
		},
	}
}

func TestValidateSnapshot(t *testing.T) {
	t.Run("usable snapshot", func(t *testing.T) {
		err := migration.ValidateSnapshot(validSnapshot(), []string{"groups", "ticket_forms"})
		require.NoError(t, err)
	})

	t.Run("nil snapshot is not found", func(t *testing.T) {
		err := migration.ValidateSnapshot(nil, []string{"groups"})
		require.Error(t, err)
		kind, ok := migration.SnapshotErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, migration.SnapshotNotFound, kind)
	})

	t.Run("missing breakdown is malformed", func(t *testing.T) {
		snapshot := validSnapshot()
		snapshot.Breakdown = nil
		err := migration.ValidateSnapshot(snapshot, []string{"groups"})
		require.Error(t, err)
		kind, ok := migration.SnapshotErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, migration.SnapshotMalformed, kind)
	})

	t.Run("locked snapshot is rejected even when complete", func(t *testing.T) {
		snapshot := validSnapshot()
		snapshot.Locked = true
		err := migration.ValidateSnapshot(snapshot, []string{"groups", "ticket_forms"})
		require.Error(t, err)
		kind, ok := migration.SnapshotErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, migration.SnapshotLocked, kind)
	})

	t.Run("missing components are all named", func(t *testing.T) {
		snapshot := validSnapshot()
		delete(snapshot.Breakdown, "ticket_forms")
		err := migration.ValidateSnapshot(snapshot, []string{"groups", "ticket_forms", "macros"})
		require.Error(t, err)
		kind, ok := migration.SnapshotErrorKindOf(err)
		require.True(t, ok)
		assert.Equal(t, migration.SnapshotMissingComponents, kind)
		assert.Contains(t, err.Error(), "ticket_forms")
		assert.Contains(t, err.Error(), "macros")
	})

	t.Run("validation is idempotent", func(t *testing.T) {
		snapshot := validSnapshot()
		snapshot.Locked = true

		first := migration.ValidateSnapshot(snapshot, []string{"groups"})
		second := migration.ValidateSnapshot(snapshot, []string{"groups"})
		require.Error(t, first)
		require.Error(t, second)
		assert.Equal(t, first.Error(), second.Error())
	})
}
