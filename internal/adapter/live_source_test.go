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

func liveJob(subdomain string) *model.MigrationJob {
	return &model.MigrationJob{
		ID:         model.NewID(),
		SourceType: model.SourceTypeLive,
		Source: &model.InstanceRef{
			ID:          "src1",
			Subdomain:   subdomain,
			Credentials: model.Credentials{"email": "admin@acme.test", "api_token": "secret"},
		},
	}
}

func TestLiveSourceFetch(t *testing.T) {
	t.Run("follows cursor pagination", func(t *testing.T) {
		var sawAuth bool
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v2/groups.json", r.URL.Path)
			_, _, ok := r.BasicAuth()
			sawAuth = ok

			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `{"groups": [{"id": 103, "name": "Billing"}]}`)
				return
			}
			fmt.Fprintf(w, `{
				"groups": [{"id": 101, "name": "Support"}, {"id": 102, "name": "Sales"}],
				"links": {"next": "%s/api/v2/groups.json?page=2"}
			}`, server.URL)
		}))
		defer server.Close()

		source := adapter.NewLiveSourceForTesting(server.Client())
		records, err := source.Fetch(context.Background(), "groups", liveJob(strings.TrimPrefix(server.URL, "http://")))
		require.NoError(t, err)

		require.Len(t, records, 3)
		assert.Equal(t, "101", records[0].SourceID())
		assert.Equal(t, "103", records[2].SourceID())
		assert.True(t, sawAuth)
	})

	t.Run("next_page pagination", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `{"records": [{"id": 2}]}`)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"records":   []map[string]interface{}{{"id": 1}},
				"next_page": server.URL + "/api/v2/macros.json?page=2",
			})
		}))
		defer server.Close()

		source := adapter.NewLiveSourceForTesting(server.Client())
		records, err := source.Fetch(context.Background(), "macros", liveJob(strings.TrimPrefix(server.URL, "http://")))
		require.NoError(t, err)
		require.Len(t, records, 2)
	})

	t.Run("non-200 status fails the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		source := adapter.NewLiveSourceForTesting(server.Client())
		_, err := source.Fetch(context.Background(), "groups", liveJob(strings.TrimPrefix(server.URL, "http://")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("missing subdomain", func(t *testing.T) {
		source := adapter.NewLiveSourceForTesting(http.DefaultClient)
		job := liveJob("")
		job.Source.Subdomain = ""
		_, err := source.Fetch(context.Background(), "groups", job)
		require.Error(t, err)
	})
}
