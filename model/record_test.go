// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSourceID(t *testing.T) {
	var record Record
	err := json.Unmarshal([]byte(`{"id": 360011737273, "title": "Close ticket"}`), &record)
	require.NoError(t, err)

	assert.Equal(t, "360011737273", record.SourceID())
	assert.Equal(t, "Close ticket", record.Name())
}

func TestIDString(t *testing.T) {
	for _, tc := range []struct {
		value    interface{}
		expected string
		ok       bool
	}{
		{"42", "42", true},
		{float64(42), "42", true},
		{float64(360011737273), "360011737273", true},
		{json.Number("17"), "17", true},
		{int(7), "7", true},
		{int64(9), "9", true},
		{nil, "", false},
		{true, "", false},
		{[]interface{}{1}, "", false},
	} {
		id, ok := IDString(tc.value)
		assert.Equal(t, tc.ok, ok)
		assert.Equal(t, tc.expected, id)
	}
}

func TestRecordClone(t *testing.T) {
	record := Record{"id": "1", "name": "Support"}
	clone := record.Clone()
	clone["name"] = "Sales"

	assert.Equal(t, "Support", record["name"])
	assert.Equal(t, "Sales", clone["name"])
}
