// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jackamondo/deskmigrate/model"
)

// initWebhook registers webhook endpoints on the given router.
func initWebhook(apiRouter *mux.Router, context *Context) {
	addContext := func(handler contextHandlerFunc) *contextHandler {
		return newContextHandler(context, handler)
	}

	webhooksRouter := apiRouter.PathPrefix("/webhooks").Subrouter()
	webhooksRouter.Handle("", addContext(handleCreateWebhook)).Methods("POST")
	webhooksRouter.Handle("", addContext(handleGetWebhooks)).Methods("GET")

	webhookRouter := apiRouter.PathPrefix("/webhooks/{webhook:[A-Za-z0-9]{26}}").Subrouter()
	webhookRouter.Handle("", addContext(handleGetWebhook)).Methods("GET")
	webhookRouter.Handle("", addContext(handleDeleteWebhook)).Methods("DELETE")
}

// handleCreateWebhook responds to POST /api/webhooks, registering an
// endpoint to receive job lifecycle events.
func handleCreateWebhook(c *Context, w http.ResponseWriter, r *http.Request) {
	c.Logger = c.Logger.WithField("action", "create-webhook")

	request, err := model.NewCreateWebhookRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Error("failed to decode request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = request.Validate()
	if err != nil {
		c.Logger.WithError(err).Error("invalid webhook request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	webhook := &model.Webhook{
		OwnerID: request.OwnerID,
		URL:     request.URL,
	}

	err = c.Store.CreateWebhook(webhook)
	if err != nil {
		c.Logger.WithError(err).Error("failed to create webhook")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	outputJSON(c, w, webhook)
}

// handleGetWebhooks responds to GET /api/webhooks, returning the
// registered webhooks.
func handleGetWebhooks(c *Context, w http.ResponseWriter, r *http.Request) {
	paging, err := parsePaging(r.URL)
	if err != nil {
		c.Logger.WithError(err).Error("failed to parse paging parameters")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	filter := &model.WebhookFilter{
		Paging:  paging,
		OwnerID: r.URL.Query().Get("owner"),
	}

	webhooks, err := c.Store.GetWebhooks(filter)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query webhooks")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	outputJSON(c, w, webhooks)
}

// handleGetWebhook responds to GET /api/webhooks/{webhook}, returning
// the webhook in question.
func handleGetWebhook(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	webhookID := vars["webhook"]
	c.Logger = c.Logger.WithField("webhook", webhookID)

	webhook, err := c.Store.GetWebhook(webhookID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query webhook")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if webhook == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	outputJSON(c, w, webhook)
}

// handleDeleteWebhook responds to DELETE /api/webhooks/{webhook},
// unregistering the endpoint.
func handleDeleteWebhook(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	webhookID := vars["webhook"]
	c.Logger = c.Logger.WithField("webhook", webhookID).WithField("action", "delete-webhook")

	webhook, err := c.Store.GetWebhook(webhookID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query webhook")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if webhook == nil || webhook.IsDeleted() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err = c.Store.DeleteWebhook(webhookID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to delete webhook")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
