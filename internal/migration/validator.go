// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package migration

import (
	"github.com/jackamondo/deskmigrate/model"
)

// ValidateSnapshot checks that a snapshot is usable as the source for
// the given required components. It is pure and idempotent; calling it
// twice with the same inputs yields the same outcome.
func ValidateSnapshot(snapshot *model.Snapshot, required []string) error {
	if snapshot == nil {
		return &SnapshotError{Kind: SnapshotNotFound}
	}
	if snapshot.Breakdown == nil {
		return &SnapshotError{Kind: SnapshotMalformed, SnapshotID: snapshot.ID}
	}
	if snapshot.Locked {
		return &SnapshotError{Kind: SnapshotLocked, SnapshotID: snapshot.ID}
	}

	var missing []string
	for _, component := range required {
		if _, ok := snapshot.Breakdown[component]; !ok {
			missing = append(missing, component)
		}
	}
	if len(missing) > 0 {
		return &SnapshotError{Kind: SnapshotMissingComponents, SnapshotID: snapshot.ID, Missing: missing}
	}

	return nil
}
