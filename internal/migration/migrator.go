// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package migration

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jackamondo/deskmigrate/model"
)

// Source fetches the source records of one component, either from a
// snapshot blob or from the live source instance.
type Source interface {
	Fetch(ctx context.Context, component string, job *model.MigrationJob) ([]model.Record, error)
}

// Target creates one translated record on the target instance and
// returns the id it minted.
type Target interface {
	Create(ctx context.Context, component string, record model.Record, job *model.MigrationJob) (string, error)
}

// StageFunc observes stage transitions of a running component
// migration.
type StageFunc func(state model.ComponentMigrationState, sourceRecords int)

// Migrator runs a single component of a migration job end to end:
// fetch, translate references, create on the target, record the new id
// mappings.
type Migrator struct {
	source Source
	target Target
	logger log.FieldLogger
}

// NewMigrator creates a Migrator reading from the given source and
// writing to the given target.
func NewMigrator(source Source, target Target, logger log.FieldLogger) *Migrator {
	return &Migrator{
		source: source,
		target: target,
		logger: logger,
	}
}

// Run migrates one component. The first failing record aborts the
// component; already created records and already recorded mappings are
// kept. The returned count is the number of fetched source records.
func (m *Migrator) Run(ctx context.Context, job *model.MigrationJob, component model.Component, translator *Translator, stage StageFunc) (int, error) {
	if stage == nil {
		stage = func(model.ComponentMigrationState, int) {}
	}
	logger := m.logger.WithField("component", component.Name)

	stage(model.ComponentMigrationStateFetching, 0)
	records, err := m.source.Fetch(ctx, component.Name, job)
	if err != nil {
		return 0, asAdapterError(err, component.Name, "", "fetch")
	}
	logger.Debugf("Fetched %d source records", len(records))

	stage(model.ComponentMigrationStateTranslating, len(records))
	translated := make([]model.Record, 0, len(records))
	for _, record := range records {
		out, err := translateRecord(record, component, translator)
		if err != nil {
			return len(records), err
		}
		translated = append(translated, out)
	}

	stage(model.ComponentMigrationStateCreating, len(records))
	for _, record := range translated {
		sourceID := record.SourceID()

		targetID, err := m.target.Create(ctx, component.Name, record, job)
		if err != nil {
			return len(records), asAdapterError(err, component.Name, sourceID, "create")
		}

		metadata := map[string]string{}
		if name := record.Name(); name != "" {
			metadata["sourceName"] = name
		}
		err = translator.Record(component.Name, sourceID, targetID, metadata)
		if err != nil {
			return len(records), err
		}
	}

	return len(records), nil
}

// translateRecord rewrites every declared reference field of the
// record through the translation table. The fetched record is not
// mutated.
func translateRecord(record model.Record, component model.Component, translator *Translator) (model.Record, error) {
	if len(component.Refs) == 0 {
		return record, nil
	}

	out := record.Clone()
	for _, ref := range component.Refs {
		value, ok := out[ref.Field]
		if !ok || value == nil {
			continue
		}

		if ref.List {
			ids, ok := value.([]interface{})
			if !ok {
				continue
			}
			resolved := make([]interface{}, 0, len(ids))
			for _, raw := range ids {
				targetID, err := resolveRef(raw, ref, component.Name, record.SourceID(), translator)
				if err != nil {
					return nil, err
				}
				if targetID != "" {
					resolved = append(resolved, targetID)
				}
			}
			out[ref.Field] = resolved
			continue
		}

		targetID, err := resolveRef(value, ref, component.Name, record.SourceID(), translator)
		if err != nil {
			return nil, err
		}
		if targetID != "" {
			out[ref.Field] = targetID
		}
	}

	return out, nil
}

func resolveRef(raw interface{}, ref model.Reference, component, recordID string, translator *Translator) (string, error) {
	sourceID, ok := model.IDString(raw)
	if !ok || sourceID == "" || sourceID == "0" {
		// Not id-shaped; the field is unset or a placeholder.
		return "", nil
	}

	targetID, err := translator.Resolve(ref.Target, sourceID)
	if err != nil {
		translationErr := &TranslationError{}
		if errors.As(err, &translationErr) {
			translationErr.Component = component
			translationErr.Field = ref.Field
		}
		return "", err
	}
	return targetID, nil
}

func asAdapterError(err error, component, sourceID, op string) error {
	adapterErr := &AdapterError{}
	if errors.As(err, &adapterErr) {
		if adapterErr.Component == "" {
			adapterErr.Component = component
		}
		if adapterErr.SourceID == "" {
			adapterErr.SourceID = sourceID
		}
		return err
	}
	return &AdapterError{Component: component, SourceID: sourceID, Op: op, Err: err}
}
