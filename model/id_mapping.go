// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// IDMapping records that an entity minted by the source instance was
// recreated on the target instance under a new id. Mappings are
// append-only and scoped to a single job run.
type IDMapping struct {
	ID         string
	JobID      string
	EntityType string
	SourceID   string
	TargetID   string
	Metadata   map[string]string
	CreateAt   int64
}

// NewIDMappingsFromReader will create a slice of IDMappings from an
// io.Reader with JSON data.
func NewIDMappingsFromReader(reader io.Reader) ([]*IDMapping, error) {
	mappings := []*IDMapping{}
	err := json.NewDecoder(reader).Decode(&mappings)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode id mappings")
	}

	return mappings, nil
}
