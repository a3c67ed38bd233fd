// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackamondo/deskmigrate/model"
)

func TestWebhookAPI(t *testing.T) {
	_, _, client, teardown := setupAPI(t)
	defer teardown()

	webhook, err := client.CreateWebhook(&model.CreateWebhookRequest{
		OwnerID: "owner1",
		URL:     "https://hooks.test/endpoint",
	})
	require.NoError(t, err)
	require.NotEmpty(t, webhook.ID)

	webhooks, err := client.GetWebhooks(&model.WebhookFilter{Paging: model.AllPagesNotDeleted()})
	require.NoError(t, err)
	require.Len(t, webhooks, 1)
	assert.Equal(t, webhook.ID, webhooks[0].ID)

	err = client.DeleteWebhook(webhook.ID)
	require.NoError(t, err)

	webhooks, err = client.GetWebhooks(&model.WebhookFilter{Paging: model.AllPagesNotDeleted()})
	require.NoError(t, err)
	assert.Empty(t, webhooks)

	// Deleting twice fails.
	err = client.DeleteWebhook(webhook.ID)
	require.Error(t, err)

	_, err = client.CreateWebhook(&model.CreateWebhookRequest{OwnerID: "owner1"})
	require.Error(t, err)
}
