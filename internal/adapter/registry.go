// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package adapter implements the source and target adapters the
// migration engine drives: snapshot blobs and live instance APIs on
// the source side, the target instance API on the create side.
// Extraction and creation logic is entity-type-specific; the registry
// selects an adapter by component name, falling back to the generic
// default.
package adapter

import (
	"github.com/pkg/errors"

	"github.com/jackamondo/deskmigrate/internal/migration"
	"github.com/jackamondo/deskmigrate/model"
)

// SourceRegistry selects a source adapter per component.
type SourceRegistry struct {
	fallback  migration.Source
	overrides map[string]migration.Source
}

// NewSourceRegistry creates a registry with the given default source.
func NewSourceRegistry(fallback migration.Source) *SourceRegistry {
	return &SourceRegistry{
		fallback:  fallback,
		overrides: make(map[string]migration.Source),
	}
}

// Register installs a component-specific source adapter.
func (r *SourceRegistry) Register(component string, source migration.Source) {
	r.overrides[component] = source
}

// For returns the source adapter for the given component.
func (r *SourceRegistry) For(component string) migration.Source {
	if source, ok := r.overrides[component]; ok {
		return source
	}
	return r.fallback
}

// TargetRegistry selects a target adapter per component.
type TargetRegistry struct {
	fallback  migration.Target
	overrides map[string]migration.Target
}

// NewTargetRegistry creates a registry with the given default target.
func NewTargetRegistry(fallback migration.Target) *TargetRegistry {
	return &TargetRegistry{
		fallback:  fallback,
		overrides: make(map[string]migration.Target),
	}
}

// Register installs a component-specific target adapter.
func (r *TargetRegistry) Register(component string, target migration.Target) {
	r.overrides[component] = target
}

// For returns the target adapter for the given component.
func (r *TargetRegistry) For(component string) migration.Target {
	if target, ok := r.overrides[component]; ok {
		return target
	}
	return r.fallback
}

// Set bundles the adapters a supervisor needs to run jobs of either
// source type.
type Set struct {
	Snapshot *SourceRegistry
	Live     *SourceRegistry
	Target   *TargetRegistry
}

// SourceFor returns the source registry matching the job's source
// type.
func (s *Set) SourceFor(sourceType model.SourceType) (*SourceRegistry, error) {
	switch sourceType {
	case model.SourceTypeSnapshot:
		return s.Snapshot, nil
	case model.SourceTypeLive:
		return s.Live, nil
	default:
		return nil, errors.Errorf("no source adapter for source type %q", sourceType)
	}
}
