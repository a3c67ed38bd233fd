// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/jackamondo/deskmigrate/model"
)

// HTTPTarget creates translated records on the target instance through
// its API.
type HTTPTarget struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	scheme     string
}

// NewHTTPTarget creates a target adapter limited to the given requests
// per second.
func NewHTTPTarget(requestsPerSecond float64) *HTTPTarget {
	return &HTTPTarget{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		scheme:     "https",
	}
}

// NewHTTPTargetForTesting creates a target adapter without rate
// limiting that talks plain HTTP to the given client.
func NewHTTPTargetForTesting(httpClient *http.Client) *HTTPTarget {
	return &HTTPTarget{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		scheme:     "http",
	}
}

// Create posts the record to the target instance's creation endpoint
// for the component and returns the id the target minted. The source
// id is stripped from the payload; the target assigns its own.
func (t *HTTPTarget) Create(ctx context.Context, component string, record model.Record, job *model.MigrationJob) (string, error) {
	if job.Target == nil || job.Target.Subdomain == "" {
		return "", errors.New("job has no target instance subdomain")
	}

	err := t.limiter.Wait(ctx)
	if err != nil {
		return "", err
	}

	payload := record.Clone()
	delete(payload, "id")
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode record")
	}

	url := fmt.Sprintf("%s://%s/api/v2/%s.json", t.scheme, job.Target.Subdomain, component)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	applyAuth(req, job.Target.Credentials)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s on target instance", component)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("target instance returned status %d creating %s", resp.StatusCode, component)
	}

	targetID, err := extractCreatedID(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read created %s id", component)
	}
	return targetID, nil
}

// extractCreatedID pulls the minted id out of a creation response.
// The id is either top level or nested one object deep, depending on
// the entity type.
func extractCreatedID(r io.Reader) (string, error) {
	var payload map[string]interface{}
	err := json.NewDecoder(r).Decode(&payload)
	if err != nil {
		return "", err
	}

	if id, ok := model.IDString(payload["id"]); ok && id != "" {
		return id, nil
	}

	for _, value := range payload {
		nested, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := model.IDString(nested["id"]); ok && id != "" {
			return id, nil
		}
	}

	return "", errors.New("creation response carries no id")
}
