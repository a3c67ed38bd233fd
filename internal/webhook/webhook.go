// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package webhook delivers job lifecycle events to registered
// endpoints.
package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jackamondo/deskmigrate/model"
)

type webhookStore interface {
	GetWebhooks(filter *model.WebhookFilter) ([]*model.Webhook, error)
}

// SendToAllWebhooks sends the payload to all registered webhook
// endpoints. Delivery is fire and forget; a slow or failing endpoint
// never blocks job processing.
func SendToAllWebhooks(store webhookStore, payload *model.WebhookPayload, logger log.FieldLogger) error {
	hooks, err := store.GetWebhooks(&model.WebhookFilter{Paging: model.AllPagesNotDeleted()})
	if err != nil {
		return errors.Wrap(err, "failed to find registered webhooks")
	}

	sendWebhooks(hooks, payload, logger)

	return nil
}

func sendWebhooks(hooks []*model.Webhook, payload *model.WebhookPayload, logger log.FieldLogger) {
	if len(hooks) == 0 {
		return
	}

	logger.Debugf("Sending %d webhook(s)", len(hooks))

	for _, hook := range hooks {
		go sendWebhook(hook, payload, logger)
	}
}

func sendWebhook(hook *model.Webhook, payload *model.WebhookPayload, logger log.FieldLogger) {
	body := &bytes.Buffer{}
	err := json.NewEncoder(body).Encode(payload)
	if err != nil {
		logger.WithError(err).Error("Unable to encode webhook payload")
		return
	}

	req, err := http.NewRequest(http.MethodPost, hook.URL, body)
	if err != nil {
		logger.WithError(err).Errorf("Unable to create webhook request to %s", hook.URL)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.WithError(err).Errorf("Unable to send webhook to %s", hook.URL)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Errorf("Webhook request to %s returned status code %d", hook.URL, resp.StatusCode)
	}
}
