// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package webhook

import (
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jackamondo/deskmigrate/model"
)

// Sender builds and dispatches the webhook payloads emitted during job
// processing.
type Sender struct {
	store       webhookStore
	environment string
}

// NewSender creates a Sender reading registered webhooks from the
// given store.
func NewSender(store webhookStore, environment string) *Sender {
	return &Sender{
		store:       store,
		environment: environment,
	}
}

// SendMigrationJobWebhook notifies all registered endpoints of a job
// state transition.
func (s *Sender) SendMigrationJobWebhook(job *model.MigrationJob, oldState string, logger log.FieldLogger) {
	oldState = ensureNotEmptyState(oldState)

	webhookPayload := &model.WebhookPayload{
		Type:      model.TypeMigrationJob,
		ID:        job.ID,
		NewState:  string(job.State),
		OldState:  oldState,
		Timestamp: time.Now().UnixNano(),
		ExtraData: map[string]string{
			"SourceType":  string(job.SourceType),
			"Environment": s.environment,
		},
	}
	if job.FailedComponent != "" {
		webhookPayload.ExtraData["FailedComponent"] = job.FailedComponent
	}

	err := SendToAllWebhooks(s.store, webhookPayload, logger.WithField("webhookEvent", webhookPayload.NewState))
	if err != nil {
		logger.WithError(err).Error("Unable to process and send webhooks")
	}
}

// SendProgressWebhook notifies all registered endpoints that a
// component finished migrating.
func (s *Sender) SendProgressWebhook(job *model.MigrationJob, component string, logger log.FieldLogger) {
	webhookPayload := &model.WebhookPayload{
		Type:      model.TypeMigrationProgress,
		ID:        job.ID,
		NewState:  string(job.State),
		OldState:  string(job.State),
		Timestamp: time.Now().UnixNano(),
		ExtraData: map[string]string{
			"Component":   component,
			"Progress":    strconv.FormatInt(job.Progress, 10),
			"Environment": s.environment,
		},
	}

	err := SendToAllWebhooks(s.store, webhookPayload, logger.WithField("webhookEvent", webhookPayload.Type))
	if err != nil {
		logger.WithError(err).Error("Unable to process and send webhooks")
	}
}

func ensureNotEmptyState(state string) string {
	if state == "" {
		return "n/a"
	}
	return state
}
