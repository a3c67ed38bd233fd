// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package migration

import (
	log "github.com/sirupsen/logrus"

	"github.com/jackamondo/deskmigrate/model"
)

// AuditSink receives a durable copy of every recorded id mapping.
// Appends are best-effort; a sink failure must never block job
// progress.
type AuditSink interface {
	CreateIDMapping(mapping *model.IDMapping) error
}

type mappingKey struct {
	entityType string
	sourceID   string
}

// Translator is the append-only table mapping (entity type, source id)
// to the id minted by the target instance. It is purely in-memory and
// scoped to a single job run; Resolve never performs I/O.
type Translator struct {
	jobID    string
	sink     AuditSink
	logger   log.FieldLogger
	mappings map[mappingKey]*model.IDMapping
	order    []*model.IDMapping
}

// NewTranslator creates an empty translation table for the given job.
// The sink may be nil.
func NewTranslator(jobID string, sink AuditSink, logger log.FieldLogger) *Translator {
	return &Translator{
		jobID:    jobID,
		sink:     sink,
		logger:   logger,
		mappings: make(map[mappingKey]*model.IDMapping),
	}
}

// Record inserts a new mapping. A second call with the same key fails
// with a DuplicateMappingError and leaves the first mapping intact.
func (t *Translator) Record(entityType, sourceID, targetID string, metadata map[string]string) error {
	key := mappingKey{entityType: entityType, sourceID: sourceID}
	if _, ok := t.mappings[key]; ok {
		return &DuplicateMappingError{EntityType: entityType, SourceID: sourceID}
	}

	mapping := &model.IDMapping{
		ID:         model.NewID(),
		JobID:      t.jobID,
		EntityType: entityType,
		SourceID:   sourceID,
		TargetID:   targetID,
		Metadata:   metadata,
	}
	t.mappings[key] = mapping
	t.order = append(t.order, mapping)

	if t.sink != nil {
		err := t.sink.CreateIDMapping(mapping)
		if err != nil {
			t.logger.WithError(err).
				WithField("entityType", entityType).
				Warn("Failed to append id mapping to audit sink")
		}
	}

	return nil
}

// Resolve returns the target id recorded for the given key, or a
// TranslationError when the key is absent.
func (t *Translator) Resolve(entityType, sourceID string) (string, error) {
	mapping, ok := t.mappings[mappingKey{entityType: entityType, sourceID: sourceID}]
	if !ok {
		return "", &TranslationError{EntityType: entityType, SourceID: sourceID}
	}
	return mapping.TargetID, nil
}

// Mappings returns every recorded mapping in insertion order.
func (t *Translator) Mappings() []*model.IDMapping {
	out := make([]*model.IDMapping, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of recorded mappings.
func (t *Translator) Len() int {
	return len(t.order)
}
