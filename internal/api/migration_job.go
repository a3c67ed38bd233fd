// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jackamondo/deskmigrate/internal/catalog"
	"github.com/jackamondo/deskmigrate/internal/webhook"
	"github.com/jackamondo/deskmigrate/model"
)

// initMigrationJob registers migration job endpoints on the given
// router.
func initMigrationJob(apiRouter *mux.Router, context *Context) {
	addContext := func(handler contextHandlerFunc) *contextHandler {
		return newContextHandler(context, handler)
	}

	migrationsRouter := apiRouter.PathPrefix("/migrations").Subrouter()
	migrationsRouter.Handle("", addContext(handleCreateMigrationJob)).Methods("POST")
	migrationsRouter.Handle("", addContext(handleGetMigrationJobs)).Methods("GET")

	migrationRouter := apiRouter.PathPrefix("/migrations/{migration:[A-Za-z0-9]{26}}").Subrouter()
	migrationRouter.Handle("", addContext(handleGetMigrationJob)).Methods("GET")
	migrationRouter.Handle("/cancel", addContext(handleCancelMigrationJob)).Methods("POST")
	migrationRouter.Handle("/components", addContext(handleGetMigrationJobComponents)).Methods("GET")
	migrationRouter.Handle("/mappings", addContext(handleGetMigrationJobMappings)).Methods("GET")
}

// handleCreateMigrationJob responds to POST /api/migrations, accepting
// a new migration job. The job is validated for shape and component
// names only; snapshot resolution happens when the supervisor picks
// the job up.
func handleCreateMigrationJob(c *Context, w http.ResponseWriter, r *http.Request) {
	c.Logger = c.Logger.WithField("action", "create-migration-job")

	request, err := model.NewCreateMigrationJobRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Error("failed to decode request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = request.Validate()
	if err != nil {
		c.Logger.WithError(err).Error("invalid migration job request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	_, err = catalog.Default.Resolve(request.Components, request.IgnoredItems)
	if err != nil {
		c.Logger.WithError(err).Error("migration job request names unknown components")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	job := &model.MigrationJob{
		SourceType:        request.Source.Type,
		SnapshotID:        request.Source.SnapshotID,
		Source:            request.Source.InstanceInfo,
		Target:            request.Target.InstanceInfo,
		Components:        request.Components,
		IgnoredComponents: request.IgnoredItems,
		State:             model.MigrationJobStateRequested,
	}

	err = c.Store.CreateMigrationJob(job)
	if err != nil {
		c.Logger.WithError(err).Error("failed to create migration job")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	webhookPayload := &model.WebhookPayload{
		Type:      model.TypeMigrationJob,
		ID:        job.ID,
		NewState:  string(job.State),
		OldState:  "n/a",
		Timestamp: time.Now().UnixNano(),
		ExtraData: map[string]string{"SourceType": string(job.SourceType), "Environment": c.Environment},
	}
	err = webhook.SendToAllWebhooks(c.Store, webhookPayload, c.Logger.WithField("webhookEvent", webhookPayload.NewState))
	if err != nil {
		c.Logger.WithError(err).Error("Unable to process and send webhooks")
	}

	c.Supervisor.Do()

	job.Sanitize()
	w.WriteHeader(http.StatusAccepted)
	outputJSON(c, w, job)
}

// handleGetMigrationJobs responds to GET /api/migrations, returning
// the jobs matching the query, most recent first.
func handleGetMigrationJobs(c *Context, w http.ResponseWriter, r *http.Request) {
	c.Logger = c.Logger.WithField("action", "list-migration-jobs")

	paging, err := parsePaging(r.URL)
	if err != nil {
		c.Logger.WithError(err).Error("failed to parse paging parameters")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	filter := &model.MigrationJobFilter{Paging: paging}
	if state := r.URL.Query().Get("state"); state != "" {
		filter.States = []model.MigrationJobState{model.MigrationJobState(state)}
	}

	jobs, err := c.Store.GetMigrationJobs(filter)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query migration jobs")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	for _, job := range jobs {
		job.Sanitize()
	}

	outputJSON(c, w, jobs)
}

// handleGetMigrationJob responds to GET /api/migrations/{migration},
// returning the job in question.
func handleGetMigrationJob(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["migration"]
	c.Logger = c.Logger.WithField("migrationJob", jobID)

	job, err := c.Store.GetMigrationJob(jobID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query migration job")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	job.Sanitize()
	outputJSON(c, w, job)
}

// handleCancelMigrationJob responds to POST
// /api/migrations/{migration}/cancel, requesting cancellation at the
// next component boundary.
func handleCancelMigrationJob(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["migration"]
	c.Logger = c.Logger.WithField("migrationJob", jobID).WithField("action", "cancel-migration-job")

	job, err := c.Store.GetMigrationJob(jobID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query migration job")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if job.IsTerminal() || job.State == model.MigrationJobStateCancellationRequested {
		c.Logger.Warnf("Migration job in state %s cannot be cancelled", job.State)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	oldState := job.State
	job.State = model.MigrationJobStateCancellationRequested
	err = c.Store.UpdateMigrationJobState(job)
	if err != nil {
		c.Logger.WithError(err).Error("failed to update migration job state")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	webhookPayload := &model.WebhookPayload{
		Type:      model.TypeMigrationJob,
		ID:        job.ID,
		NewState:  string(job.State),
		OldState:  string(oldState),
		Timestamp: time.Now().UnixNano(),
		ExtraData: map[string]string{"Environment": c.Environment},
	}
	err = webhook.SendToAllWebhooks(c.Store, webhookPayload, c.Logger.WithField("webhookEvent", webhookPayload.NewState))
	if err != nil {
		c.Logger.WithError(err).Error("Unable to process and send webhooks")
	}

	c.Supervisor.Do()

	job.Sanitize()
	w.WriteHeader(http.StatusAccepted)
	outputJSON(c, w, job)
}

// handleGetMigrationJobComponents responds to GET
// /api/migrations/{migration}/components, returning the per-component
// progress of the job.
func handleGetMigrationJobComponents(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["migration"]
	c.Logger = c.Logger.WithField("migrationJob", jobID)

	job, err := c.Store.GetMigrationJob(jobID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query migration job")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	componentMigrations, err := c.Store.GetComponentMigrations(jobID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query component migrations")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	outputJSON(c, w, componentMigrations)
}

// handleGetMigrationJobMappings responds to GET
// /api/migrations/{migration}/mappings, returning the id translation
// audit trail recorded by the job.
func handleGetMigrationJobMappings(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["migration"]
	c.Logger = c.Logger.WithField("migrationJob", jobID)

	job, err := c.Store.GetMigrationJob(jobID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query migration job")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	mappings, err := c.Store.GetIDMappings(jobID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query id mappings")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	outputJSON(c, w, mappings)
}
