// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jackamondo/deskmigrate/model"
)

// initSnapshot registers snapshot endpoints on the given router.
func initSnapshot(apiRouter *mux.Router, context *Context) {
	addContext := func(handler contextHandlerFunc) *contextHandler {
		return newContextHandler(context, handler)
	}

	snapshotsRouter := apiRouter.PathPrefix("/snapshots").Subrouter()
	snapshotsRouter.Handle("", addContext(handleRegisterSnapshot)).Methods("POST")
	snapshotsRouter.Handle("", addContext(handleGetSnapshots)).Methods("GET")

	snapshotRouter := apiRouter.PathPrefix("/snapshots/{snapshot:[A-Za-z0-9]{26}}").Subrouter()
	snapshotRouter.Handle("", addContext(handleGetSnapshot)).Methods("GET")
	snapshotRouter.Handle("", addContext(handleDeleteSnapshot)).Methods("DELETE")
}

// handleRegisterSnapshot responds to POST /api/snapshots, registering
// snapshot metadata captured out of band.
func handleRegisterSnapshot(c *Context, w http.ResponseWriter, r *http.Request) {
	c.Logger = c.Logger.WithField("action", "register-snapshot")

	request, err := model.NewRegisterSnapshotRequestFromReader(r.Body)
	if err != nil {
		c.Logger.WithError(err).Error("failed to decode request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = request.Validate()
	if err != nil {
		c.Logger.WithError(err).Error("invalid snapshot request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	snapshot := &model.Snapshot{
		Name:      request.Name,
		ParentID:  request.ParentID,
		Locked:    request.Locked,
		Breakdown: request.Breakdown,
	}

	err = c.Store.CreateSnapshot(snapshot)
	if err != nil {
		c.Logger.WithError(err).Error("failed to create snapshot")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	outputJSON(c, w, snapshot)
}

// handleGetSnapshots responds to GET /api/snapshots, returning the
// registered snapshots.
func handleGetSnapshots(c *Context, w http.ResponseWriter, r *http.Request) {
	paging, err := parsePaging(r.URL)
	if err != nil {
		c.Logger.WithError(err).Error("failed to parse paging parameters")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	filter := &model.SnapshotFilter{
		Paging:   paging,
		ParentID: r.URL.Query().Get("parent"),
	}

	snapshots, err := c.Store.GetSnapshots(filter)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query snapshots")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	outputJSON(c, w, snapshots)
}

// handleGetSnapshot responds to GET /api/snapshots/{snapshot},
// returning the snapshot in question.
func handleGetSnapshot(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snapshotID := vars["snapshot"]
	c.Logger = c.Logger.WithField("snapshot", snapshotID)

	snapshot, err := c.Store.GetSnapshot(snapshotID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query snapshot")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	outputJSON(c, w, snapshot)
}

// handleDeleteSnapshot responds to DELETE /api/snapshots/{snapshot},
// marking the snapshot as deleted.
func handleDeleteSnapshot(c *Context, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snapshotID := vars["snapshot"]
	c.Logger = c.Logger.WithField("snapshot", snapshotID).WithField("action", "delete-snapshot")

	snapshot, err := c.Store.GetSnapshot(snapshotID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to query snapshot")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err = c.Store.DeleteSnapshot(snapshotID)
	if err != nil {
		c.Logger.WithError(err).Error("failed to delete snapshot")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
