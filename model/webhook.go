// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const (
	// TypeMigrationJob is sent when a migration job changes state.
	TypeMigrationJob = "migration_job"
	// TypeMigrationProgress is sent after every successfully migrated
	// component.
	TypeMigrationProgress = "migration_progress"
)

// Webhook is a registered endpoint that receives job lifecycle events.
type Webhook struct {
	ID       string
	OwnerID  string
	URL      string
	CreateAt int64
	DeleteAt int64
}

// IsDeleted returns whether the webhook was marked as deleted or not.
func (w *Webhook) IsDeleted() bool {
	return w.DeleteAt != 0
}

// WebhookFilter describes the parameters used to constrain a set of
// webhooks.
type WebhookFilter struct {
	Paging
	OwnerID string
}

// WebhookPayload is the event sent to registered webhook endpoints.
type WebhookPayload struct {
	Timestamp int64             `json:"timestamp"`
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	NewState  string            `json:"new_state"`
	OldState  string            `json:"old_state"`
	ExtraData map[string]string `json:"extra_data,omitempty"`
}

// ToJSON returns the payload as a JSON string.
func (p *WebhookPayload) ToJSON() (string, error) {
	b := &bytes.Buffer{}
	err := json.NewEncoder(b).Encode(p)
	if err != nil {
		return "", err
	}

	return b.String(), nil
}

// NewWebhookFromReader will create a Webhook from an io.Reader with
// JSON data.
func NewWebhookFromReader(reader io.Reader) (*Webhook, error) {
	var webhook Webhook
	err := json.NewDecoder(reader).Decode(&webhook)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode webhook")
	}

	return &webhook, nil
}

// NewWebhooksFromReader will create a slice of Webhooks from an
// io.Reader with JSON data.
func NewWebhooksFromReader(reader io.Reader) ([]*Webhook, error) {
	webhooks := []*Webhook{}
	err := json.NewDecoder(reader).Decode(&webhooks)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode webhooks")
	}

	return webhooks, nil
}

// NewWebhookPayloadFromReader will create a WebhookPayload from an
// io.Reader with JSON data.
func NewWebhookPayloadFromReader(reader io.Reader) (*WebhookPayload, error) {
	var payload WebhookPayload
	err := json.NewDecoder(reader).Decode(&payload)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode webhook payload")
	}

	return &payload, nil
}
