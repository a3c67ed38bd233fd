// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Client is the programmatic interface to the deskmigrate server API.
type Client struct {
	address    string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient creates a client to the deskmigrate server at the given
// address.
func NewClient(address string) *Client {
	return &Client{
		address:    address,
		headers:    make(map[string]string),
		httpClient: &http.Client{},
	}
}

// NewClientWithHeaders creates a client to the deskmigrate server at
// the given address and uses the provided headers.
func NewClientWithHeaders(address string, headers map[string]string) *Client {
	return &Client{
		address:    address,
		headers:    headers,
		httpClient: &http.Client{},
	}
}

func (c *Client) buildURL(urlPath string, args ...interface{}) string {
	return fmt.Sprintf("%s%s", c.address, fmt.Sprintf(urlPath, args...))
}

func (c *Client) doGet(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}

	return c.httpClient.Do(req)
}

func (c *Client) doPost(u string, request interface{}) (*http.Response, error) {
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(requestBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}

	return c.httpClient.Do(req)
}

func (c *Client) doDelete(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodDelete, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Add(k, v)
	}

	return c.httpClient.Do(req)
}

func closeBody(r *http.Response) {
	if r.Body != nil {
		_ = r.Body.Close()
	}
}

// CreateMigrationJob requests a new migration job from the
// deskmigrate server.
func (c *Client) CreateMigrationJob(request *CreateMigrationJobRequest) (*MigrationJob, error) {
	resp, err := c.doPost(c.buildURL("/api/migrations"), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return NewMigrationJobFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetMigrationJob fetches the given migration job.
func (c *Client) GetMigrationJob(jobID string) (*MigrationJob, error) {
	resp, err := c.doGet(c.buildURL("/api/migrations/%s", jobID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewMigrationJobFromReader(resp.Body)
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetMigrationJobs fetches the list of migration jobs matching the
// filter.
func (c *Client) GetMigrationJobs(filter *MigrationJobFilter) ([]*MigrationJob, error) {
	u, err := url.Parse(c.buildURL("/api/migrations"))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	filter.AddToQuery(q)
	if len(filter.States) > 0 {
		q.Add("state", string(filter.States[0]))
	}
	u.RawQuery = q.Encode()

	resp, err := c.doGet(u.String())
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewMigrationJobsFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// CancelMigrationJob requests cancellation of the given migration job
// at the next component boundary.
func (c *Client) CancelMigrationJob(jobID string) error {
	resp, err := c.doPost(c.buildURL("/api/migrations/%s/cancel", jobID), nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	default:
		return errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetMigrationJobMappings fetches the id mappings recorded by the
// given migration job.
func (c *Client) GetMigrationJobMappings(jobID string) ([]*IDMapping, error) {
	resp, err := c.doGet(c.buildURL("/api/migrations/%s/mappings", jobID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewIDMappingsFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// RegisterSnapshot registers snapshot metadata with the migration
// server.
func (c *Client) RegisterSnapshot(request *RegisterSnapshotRequest) (*Snapshot, error) {
	resp, err := c.doPost(c.buildURL("/api/snapshots"), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		return NewSnapshotFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetSnapshot fetches the given snapshot.
func (c *Client) GetSnapshot(snapshotID string) (*Snapshot, error) {
	resp, err := c.doGet(c.buildURL("/api/snapshots/%s", snapshotID))
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewSnapshotFromReader(resp.Body)
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetSnapshots fetches the list of snapshots matching the filter.
func (c *Client) GetSnapshots(filter *SnapshotFilter) ([]*Snapshot, error) {
	u, err := url.Parse(c.buildURL("/api/snapshots"))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	filter.AddToQuery(q)
	if filter.ParentID != "" {
		q.Add("parent", filter.ParentID)
	}
	u.RawQuery = q.Encode()

	resp, err := c.doGet(u.String())
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewSnapshotsFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// DeleteSnapshot marks the given snapshot as deleted.
func (c *Client) DeleteSnapshot(snapshotID string) error {
	resp, err := c.doDelete(c.buildURL("/api/snapshots/%s", snapshotID))
	if err != nil {
		return err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	default:
		return errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// CreateWebhook registers a webhook with the migration server.
func (c *Client) CreateWebhook(request *CreateWebhookRequest) (*Webhook, error) {
	resp, err := c.doPost(c.buildURL("/api/webhooks"), request)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return NewWebhookFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// GetWebhooks fetches the list of webhooks matching the filter.
func (c *Client) GetWebhooks(filter *WebhookFilter) ([]*Webhook, error) {
	u, err := url.Parse(c.buildURL("/api/webhooks"))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	filter.AddToQuery(q)
	if filter.OwnerID != "" {
		q.Add("owner", filter.OwnerID)
	}
	u.RawQuery = q.Encode()

	resp, err := c.doGet(u.String())
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return NewWebhooksFromReader(resp.Body)
	default:
		return nil, errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}

// DeleteWebhook deletes the given webhook.
func (c *Client) DeleteWebhook(webhookID string) error {
	resp, err := c.doDelete(c.buildURL("/api/webhooks/%s", webhookID))
	if err != nil {
		return err
	}
	defer closeBody(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	default:
		return errors.Errorf("failed with status code %d", resp.StatusCode)
	}
}
