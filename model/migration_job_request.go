// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// MigrationSource describes where a requested migration reads from.
type MigrationSource struct {
	Type         SourceType   `json:"type"`
	InstanceInfo *InstanceRef `json:"instanceInfo"`
	SnapshotID   string       `json:"snapshotId,omitempty"`
}

// MigrationTarget describes the instance a requested migration writes
// to.
type MigrationTarget struct {
	InstanceInfo *InstanceRef `json:"instanceInfo"`
}

// CreateMigrationJobRequest is the job intake payload.
type CreateMigrationJobRequest struct {
	Source MigrationSource `json:"source"`
	Target MigrationTarget `json:"target"`

	// Components selects the entity types to migrate. IgnoredItems
	// instead excludes entity types from the full catalog; the two are
	// mutually exclusive.
	Components   []string `json:"components,omitempty"`
	IgnoredItems []string `json:"ignoredItems,omitempty"`
}

// Validate checks the request shape. Component names are validated
// against the catalog by the caller, and snapshot resolution is left
// to the supervisor.
func (r *CreateMigrationJobRequest) Validate() error {
	switch r.Source.Type {
	case SourceTypeSnapshot:
		if r.Source.SnapshotID == "" {
			return errors.New("snapshot source requires a snapshotId")
		}
	case SourceTypeLive:
		if r.Source.SnapshotID != "" {
			return errors.New("live source must not carry a snapshotId")
		}
	default:
		return errors.Errorf("unknown source type %q", r.Source.Type)
	}

	if r.Source.InstanceInfo == nil {
		return errors.New("source instance info is required")
	}
	if r.Target.InstanceInfo == nil {
		return errors.New("target instance info is required")
	}
	if len(r.Components) > 0 && len(r.IgnoredItems) > 0 {
		return errors.New("components and ignoredItems are mutually exclusive")
	}

	return nil
}

// NewCreateMigrationJobRequestFromReader will create a
// CreateMigrationJobRequest from an io.Reader with JSON data.
func NewCreateMigrationJobRequestFromReader(reader io.Reader) (*CreateMigrationJobRequest, error) {
	var request CreateMigrationJobRequest
	err := json.NewDecoder(reader).Decode(&request)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode create migration job request")
	}

	return &request, nil
}

// RegisterSnapshotRequest registers snapshot metadata with the server.
// The component blobs themselves are placed in the snapshot store by
// the capture tooling.
type RegisterSnapshotRequest struct {
	Name      string            `json:"name"`
	ParentID  string            `json:"parentId"`
	Locked    bool              `json:"locked"`
	Breakdown SnapshotBreakdown `json:"breakdown"`
}

// Validate checks the request shape.
func (r *RegisterSnapshotRequest) Validate() error {
	if r.Name == "" {
		return errors.New("snapshot name is required")
	}
	if r.ParentID == "" {
		return errors.New("snapshot parentId is required")
	}
	return nil
}

// NewRegisterSnapshotRequestFromReader will create a
// RegisterSnapshotRequest from an io.Reader with JSON data.
func NewRegisterSnapshotRequestFromReader(reader io.Reader) (*RegisterSnapshotRequest, error) {
	var request RegisterSnapshotRequest
	err := json.NewDecoder(reader).Decode(&request)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode register snapshot request")
	}

	return &request, nil
}

// CreateWebhookRequest registers a webhook endpoint.
type CreateWebhookRequest struct {
	OwnerID string `json:"ownerId"`
	URL     string `json:"url"`
}

// Validate checks the request shape.
func (r *CreateWebhookRequest) Validate() error {
	if r.URL == "" {
		return errors.New("webhook url is required")
	}
	return nil
}

// NewCreateWebhookRequestFromReader will create a CreateWebhookRequest
// from an io.Reader with JSON data.
func NewCreateWebhookRequestFromReader(reader io.Reader) (*CreateWebhookRequest, error) {
	var request CreateWebhookRequest
	err := json.NewDecoder(reader).Decode(&request)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode create webhook request")
	}

	return &request, nil
}
