// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package api exposes the migration server's HTTP surface.
package api

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jackamondo/deskmigrate/model"
)

// Store describes the database operations required by the API
// handlers.
type Store interface {
	CreateMigrationJob(job *model.MigrationJob) error
	GetMigrationJob(id string) (*model.MigrationJob, error)
	GetMigrationJobs(filter *model.MigrationJobFilter) ([]*model.MigrationJob, error)
	UpdateMigrationJobState(job *model.MigrationJob) error

	GetComponentMigrations(jobID string) ([]*model.ComponentMigration, error)
	GetIDMappings(jobID string) ([]*model.IDMapping, error)

	CreateSnapshot(snapshot *model.Snapshot) error
	GetSnapshot(id string) (*model.Snapshot, error)
	GetSnapshots(filter *model.SnapshotFilter) ([]*model.Snapshot, error)
	DeleteSnapshot(id string) error

	CreateWebhook(webhook *model.Webhook) error
	GetWebhook(id string) (*model.Webhook, error)
	GetWebhooks(filter *model.WebhookFilter) ([]*model.Webhook, error)
	DeleteWebhook(id string) error
}

// Supervisor describes the job processing operations the API can
// nudge.
type Supervisor interface {
	Do() error
}

// Context provides the API with all necessary data and interfaces for
// responding to requests.
//
// It is cloned before each request, allowing per-request changes such
// as logger annotations.
type Context struct {
	Store       Store
	Supervisor  Supervisor
	RequestID   string
	Environment string
	Logger      logrus.FieldLogger
}

// Clone creates a shallow copy of context, allowing clones to apply
// per-request changes.
func (c *Context) Clone() *Context {
	return &Context{
		Store:       c.Store,
		Supervisor:  c.Supervisor,
		Environment: c.Environment,
		Logger:      c.Logger,
	}
}

type contextHandlerFunc func(c *Context, w http.ResponseWriter, r *http.Request)

type contextHandler struct {
	context *Context
	handler contextHandlerFunc
}

func (h contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	context := h.context.Clone()
	context.RequestID = model.NewID()
	context.Logger = context.Logger.WithFields(logrus.Fields{
		"path":    r.URL.Path,
		"request": context.RequestID,
	})

	h.handler(context, w, r)
}

func newContextHandler(context *Context, handler contextHandlerFunc) *contextHandler {
	return &contextHandler{
		context: context,
		handler: handler,
	}
}
