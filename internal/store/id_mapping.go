// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package store

import (
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/jackamondo/deskmigrate/model"
)

const (
	idMappingTable = "IDMapping"
)

var idMappingSelect sq.SelectBuilder

func init() {
	idMappingSelect = sq.
		Select(
			"ID", "JobID", "EntityType", "SourceID", "TargetID", "MetadataRaw", "CreateAt",
		).
		From(idMappingTable)
}

type rawIDMapping struct {
	*model.IDMapping
	MetadataRaw []byte
}

type rawIDMappings []*rawIDMapping

func (r *rawIDMapping) toIDMapping() (*model.IDMapping, error) {
	if len(r.MetadataRaw) > 0 {
		err := json.Unmarshal(r.MetadataRaw, &r.IDMapping.Metadata)
		if err != nil {
			return nil, err
		}
	}
	return r.IDMapping, nil
}

func (r rawIDMappings) toIDMappings() ([]*model.IDMapping, error) {
	mappings := make([]*model.IDMapping, 0, len(r))
	for _, raw := range r {
		mapping, err := raw.toIDMapping()
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	return mappings, nil
}

// CreateIDMapping records a new id mapping to the database. The
// (JobID, EntityType, SourceID) key is unique; inserting a duplicate
// fails and never overwrites the existing row.
func (sqlStore *SQLStore) CreateIDMapping(mapping *model.IDMapping) error {
	if mapping.ID == "" {
		mapping.ID = model.NewID()
	}
	mapping.CreateAt = model.GetMillis()

	var metadataRaw interface{}
	if len(mapping.Metadata) > 0 {
		data, err := json.Marshal(mapping.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal mapping metadata")
		}
		metadataRaw = data
	}

	_, err := sqlStore.execBuilder(sqlStore.db, sq.
		Insert(idMappingTable).
		SetMap(map[string]interface{}{
			"ID":          mapping.ID,
			"JobID":       mapping.JobID,
			"EntityType":  mapping.EntityType,
			"SourceID":    mapping.SourceID,
			"TargetID":    mapping.TargetID,
			"MetadataRaw": metadataRaw,
			"CreateAt":    mapping.CreateAt,
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create id mapping")
	}

	return nil
}

// GetIDMappings fetches the id mappings recorded by the given job, in
// insertion order.
func (sqlStore *SQLStore) GetIDMappings(jobID string) ([]*model.IDMapping, error) {
	var raws rawIDMappings
	err := sqlStore.selectBuilder(sqlStore.db, &raws,
		idMappingSelect.
			Where("JobID = ?", jobID).
			OrderBy("CreateAt ASC", "ID ASC"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query id mappings")
	}

	return raws.toIDMappings()
}
