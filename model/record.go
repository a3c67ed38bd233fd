// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"strconv"
)

// Record is one source entity as fetched from a snapshot blob or a
// live instance API. The shape is component-specific; only the id and
// the statically declared reference fields are interpreted.
type Record map[string]interface{}

// SourceID returns the record's id, normalized to a string. Helpdesk
// APIs mint numeric ids while snapshots may carry them as strings.
func (r Record) SourceID() string {
	id, _ := IDString(r["id"])
	return id
}

// Name returns the record's display name or title, when present.
func (r Record) Name() string {
	for _, field := range []string{"name", "title"} {
		if s, ok := r[field].(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of the record that can be mutated
// without affecting the fetched original.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IDString normalizes an id value from decoded JSON to its string
// form. It returns false when the value is not id-shaped.
func IDString(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case json.Number:
		return id.String(), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	default:
		return "", false
	}
}
