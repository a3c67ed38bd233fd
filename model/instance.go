// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

// Credentials is an opaque bundle of secrets used to authenticate
// against a helpdesk instance. The contents are defined by the adapter
// talking to that instance and are never logged.
type Credentials map[string]string

// Email returns the account email, if present in the bundle.
func (c Credentials) Email() string {
	return c["email"]
}

// Token returns the API token, if present in the bundle.
func (c Credentials) Token() string {
	return c["api_token"]
}

// InstanceRef identifies a helpdesk instance taking part in a
// migration. It is immutable once attached to a job.
type InstanceRef struct {
	ID          string
	Name        string
	Subdomain   string
	Tags        []string
	Credentials Credentials `json:"Credentials,omitempty"`
}

// Sanitize removes the credential bundle so the reference can be
// returned from the API or embedded in webhook payloads.
func (r *InstanceRef) Sanitize() {
	if r == nil {
		return
	}
	r.Credentials = nil
}
