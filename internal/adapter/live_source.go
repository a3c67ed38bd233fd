// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/jackamondo/deskmigrate/model"
)

// LiveSource fetches component records from the running source
// instance's API, following cursor pagination. Requests are rate
// limited to stay under the instance's API quota.
type LiveSource struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	scheme     string
}

// NewLiveSource creates a live source adapter limited to the given
// requests per second.
func NewLiveSource(requestsPerSecond float64) *LiveSource {
	return &LiveSource{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		scheme:     "https",
	}
}

// NewLiveSourceForTesting creates a live source adapter without rate
// limiting that talks plain HTTP to the given client.
func NewLiveSourceForTesting(httpClient *http.Client) *LiveSource {
	return &LiveSource{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		scheme:     "http",
	}
}

type livePage struct {
	records []model.Record
	next    string
}

// Fetch pages through the source instance's listing endpoint for the
// component until the cursor is exhausted.
func (s *LiveSource) Fetch(ctx context.Context, component string, job *model.MigrationJob) ([]model.Record, error) {
	if job.Source == nil || job.Source.Subdomain == "" {
		return nil, errors.New("job has no source instance subdomain")
	}

	records := []model.Record{}
	url := fmt.Sprintf("%s://%s/api/v2/%s.json", s.scheme, job.Source.Subdomain, component)
	for url != "" {
		err := s.limiter.Wait(ctx)
		if err != nil {
			return nil, err
		}

		page, err := s.fetchPage(ctx, url, component, job.Source.Credentials)
		if err != nil {
			return nil, err
		}
		records = append(records, page.records...)
		url = page.next
	}

	return records, nil
}

func (s *LiveSource) fetchPage(ctx context.Context, url, component string, credentials model.Credentials) (*livePage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	applyAuth(req, credentials)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s from source instance", component)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("source instance returned status %d listing %s", resp.StatusCode, component)
	}

	var payload map[string]json.RawMessage
	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s listing", component)
	}

	page := &livePage{}

	rawRecords, ok := payload[component]
	if !ok {
		rawRecords, ok = payload["records"]
	}
	if ok {
		err = json.Unmarshal(rawRecords, &page.records)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s records", component)
		}
	}

	if rawLinks, ok := payload["links"]; ok {
		var links struct {
			Next string `json:"next"`
		}
		err = json.Unmarshal(rawLinks, &links)
		if err == nil {
			page.next = links.Next
		}
	}
	if page.next == "" {
		if rawNext, ok := payload["next_page"]; ok {
			_ = json.Unmarshal(rawNext, &page.next)
		}
	}

	return page, nil
}

func applyAuth(req *http.Request, credentials model.Credentials) {
	if credentials == nil {
		return
	}
	if email := credentials.Email(); email != "" {
		req.SetBasicAuth(email+"/token", credentials.Token())
		return
	}
	if token := credentials.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
