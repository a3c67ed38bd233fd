// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackamondo/deskmigrate/internal/testlib"
	"github.com/jackamondo/deskmigrate/model"
)

func TestCreateIDMapping(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	mapping := &model.IDMapping{
		JobID:      "job1",
		EntityType: "groups",
		SourceID:   "101",
		TargetID:   "201",
		Metadata:   map[string]string{"sourceName": "Support"},
	}

	err := sqlStore.CreateIDMapping(mapping)
	require.NoError(t, err)
	require.NotEmpty(t, mapping.ID)

	mappings, err := sqlStore.GetIDMappings("job1")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "groups", mappings[0].EntityType)
	assert.Equal(t, "101", mappings[0].SourceID)
	assert.Equal(t, "201", mappings[0].TargetID)
	assert.Equal(t, "Support", mappings[0].Metadata["sourceName"])
}

func TestCreateDuplicateIDMapping(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	mapping := &model.IDMapping{
		JobID:      "job1",
		EntityType: "groups",
		SourceID:   "101",
		TargetID:   "201",
	}
	err := sqlStore.CreateIDMapping(mapping)
	require.NoError(t, err)

	// The same source id may not be remapped within a job.
	duplicate := &model.IDMapping{
		JobID:      "job1",
		EntityType: "groups",
		SourceID:   "101",
		TargetID:   "999",
	}
	err = sqlStore.CreateIDMapping(duplicate)
	require.Error(t, err)

	mappings, err := sqlStore.GetIDMappings("job1")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "201", mappings[0].TargetID)

	// A different job may map the same source id.
	otherJob := &model.IDMapping{
		JobID:      "job2",
		EntityType: "groups",
		SourceID:   "101",
		TargetID:   "301",
	}
	err = sqlStore.CreateIDMapping(otherJob)
	require.NoError(t, err)
}

func TestGetIDMappingsScopedToJob(t *testing.T) {
	logger := testlib.MakeLogger(t)
	sqlStore := MakeTestSQLStore(t, logger)
	defer CloseConnection(t, sqlStore)

	for _, m := range []*model.IDMapping{
		{JobID: "job1", EntityType: "groups", SourceID: "1", TargetID: "11"},
		{JobID: "job1", EntityType: "macros", SourceID: "2", TargetID: "12"},
		{JobID: "job2", EntityType: "groups", SourceID: "3", TargetID: "13"},
	} {
		require.NoError(t, sqlStore.CreateIDMapping(m))
	}

	mappings, err := sqlStore.GetIDMappings("job1")
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	mappings, err = sqlStore.GetIDMappings("job3")
	require.NoError(t, err)
	require.Empty(t, mappings)
}
