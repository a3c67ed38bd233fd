// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package adapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackamondo/deskmigrate/internal/adapter"
	"github.com/jackamondo/deskmigrate/model"
)

func targetJob(subdomain string) *model.MigrationJob {
	return &model.MigrationJob{
		ID: model.NewID(),
		Target: &model.InstanceRef{
			ID:          "dst1",
			Subdomain:   subdomain,
			Credentials: model.Credentials{"api_token": "secret"},
		},
	}
}

func TestHTTPTargetCreate(t *testing.T) {
	t.Run("posts the record and returns the minted id", func(t *testing.T) {
		var received model.Record
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/v2/groups.json", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": 9001, "name": "Support"}`)
		}))
		defer server.Close()

		target := adapter.NewHTTPTargetForTesting(server.Client())
		record := model.Record{"id": float64(101), "name": "Support"}

		targetID, err := target.Create(context.Background(), "groups", record, targetJob(strings.TrimPrefix(server.URL, "http://")))
		require.NoError(t, err)
		assert.Equal(t, "9001", targetID)

		// The source id is stripped; the target mints its own.
		_, hasID := received["id"]
		assert.False(t, hasID)
		assert.Equal(t, "Support", received["name"])
		assert.Equal(t, "101", record.SourceID())
	})

	t.Run("reads a nested created id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"group": {"id": 9002, "name": "Sales"}}`)
		}))
		defer server.Close()

		target := adapter.NewHTTPTargetForTesting(server.Client())
		targetID, err := target.Create(context.Background(), "groups", model.Record{"name": "Sales"}, targetJob(strings.TrimPrefix(server.URL, "http://")))
		require.NoError(t, err)
		assert.Equal(t, "9002", targetID)
	})

	t.Run("non-2xx status fails the create", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		target := adapter.NewHTTPTargetForTesting(server.Client())
		_, err := target.Create(context.Background(), "groups", model.Record{"name": "Support"}, targetJob(strings.TrimPrefix(server.URL, "http://")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
	})

	t.Run("response without id fails the create", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ok": true}`)
		}))
		defer server.Close()

		target := adapter.NewHTTPTargetForTesting(server.Client())
		_, err := target.Create(context.Background(), "groups", model.Record{"name": "Support"}, targetJob(strings.TrimPrefix(server.URL, "http://")))
		require.Error(t, err)
	})
}
