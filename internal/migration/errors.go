// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package migration

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ValidationError signals a malformed job or a component name not
// recognized by the catalog. It is raised before any adapter or
// translator activity.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationErrorf creates a ValidationError with a formatted
// message.
func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError determines whether the error chain contains a
// ValidationError.
func IsValidationError(err error) bool {
	target := &ValidationError{}
	return errors.As(err, &target)
}

// SnapshotErrorKind categorizes snapshot validation failures.
type SnapshotErrorKind string

const (
	// SnapshotNotFound means the snapshot reference did not resolve.
	SnapshotNotFound SnapshotErrorKind = "not-found"
	// SnapshotMalformed means the snapshot carries no breakdown.
	SnapshotMalformed SnapshotErrorKind = "malformed"
	// SnapshotMissingComponents means the breakdown lacks one or more
	// required components.
	SnapshotMissingComponents SnapshotErrorKind = "missing-components"
	// SnapshotLocked means the snapshot is reserved and must not be
	// consumed as a migration source.
	SnapshotLocked SnapshotErrorKind = "locked"
)

// SnapshotError signals that a snapshot is not usable as the source of
// a migration.
type SnapshotError struct {
	Kind       SnapshotErrorKind
	SnapshotID string
	// Missing lists every required component absent from the breakdown
	// when Kind is SnapshotMissingComponents.
	Missing []string
}

func (e *SnapshotError) Error() string {
	switch e.Kind {
	case SnapshotNotFound:
		return fmt.Sprintf("snapshot %s not found", e.SnapshotID)
	case SnapshotMalformed:
		return fmt.Sprintf("snapshot %s has no breakdown", e.SnapshotID)
	case SnapshotMissingComponents:
		return fmt.Sprintf("snapshot %s is missing components: %s", e.SnapshotID, strings.Join(e.Missing, ", "))
	case SnapshotLocked:
		return fmt.Sprintf("snapshot %s is locked", e.SnapshotID)
	default:
		return fmt.Sprintf("snapshot %s is not usable", e.SnapshotID)
	}
}

// SnapshotErrorKindOf returns the kind of the SnapshotError in the
// error chain, if any.
func SnapshotErrorKindOf(err error) (SnapshotErrorKind, bool) {
	target := &SnapshotError{}
	if errors.As(err, &target) {
		return target.Kind, true
	}
	return "", false
}

// TranslationError signals a reference to an id that is absent from
// the identifier translation table, either because the referenced type
// was not migrated in this job or because the id itself is unknown.
type TranslationError struct {
	Component  string
	Field      string
	EntityType string
	SourceID   string
}

func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("no mapping for %s id %s", e.EntityType, e.SourceID)
	if e.Field != "" {
		msg = fmt.Sprintf("%s referenced by field %q", msg, e.Field)
	}
	if e.Component != "" {
		msg = fmt.Sprintf("%s while translating component %s", msg, e.Component)
	}
	return msg
}

// IsTranslationError determines whether the error chain contains a
// TranslationError.
func IsTranslationError(err error) bool {
	target := &TranslationError{}
	return errors.As(err, &target)
}

// AdapterError signals a source fetch or target create failure. For
// create failures SourceID carries the offending record's source id.
type AdapterError struct {
	Component string
	SourceID  string
	Op        string
	Err       error
}

func (e *AdapterError) Error() string {
	if e.SourceID != "" {
		return fmt.Sprintf("%s failed for component %s record %s: %s", e.Op, e.Component, e.SourceID, e.Err)
	}
	return fmt.Sprintf("%s failed for component %s: %s", e.Op, e.Component, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterError determines whether the error chain contains an
// AdapterError.
func IsAdapterError(err error) bool {
	target := &AdapterError{}
	return errors.As(err, &target)
}

// DuplicateMappingError signals a second Record call for the same
// (entity type, source id) key. It is a correctness guard; the first
// mapping is never overwritten.
type DuplicateMappingError struct {
	EntityType string
	SourceID   string
}

func (e *DuplicateMappingError) Error() string {
	return fmt.Sprintf("mapping for %s id %s already recorded", e.EntityType, e.SourceID)
}

// IsDuplicateMappingError determines whether the error chain contains
// a DuplicateMappingError.
func IsDuplicateMappingError(err error) bool {
	target := &DuplicateMappingError{}
	return errors.As(err, &target)
}

// CancellationError signals that the job was cancelled at a component
// boundary.
type CancellationError struct{}

func (e *CancellationError) Error() string {
	return "migration cancelled"
}

// IsCancellationError determines whether the error chain contains a
// CancellationError.
func IsCancellationError(err error) bool {
	target := &CancellationError{}
	return errors.As(err, &target)
}

// UnknownError wraps an uncategorized failure, preserving its original
// message.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown error: %s", e.Err)
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// Categorize returns the error unchanged when it already belongs to
// the migration error taxonomy, and wraps it in an UnknownError
// otherwise.
func Categorize(err error) error {
	if err == nil {
		return nil
	}
	if IsValidationError(err) || IsTranslationError(err) || IsAdapterError(err) ||
		IsDuplicateMappingError(err) || IsCancellationError(err) {
		return err
	}
	if _, ok := SnapshotErrorKindOf(err); ok {
		return err
	}
	return &UnknownError{Err: err}
}
