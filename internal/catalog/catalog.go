// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package catalog holds the fixed total order over migratable entity
// types. The order stands in for a dependency graph: every type is
// known, by domain knowledge, to reference only types earlier in the
// list, so migrating in catalog order guarantees that forward
// references resolve.
package catalog

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/jackamondo/deskmigrate/internal/migration"
	"github.com/jackamondo/deskmigrate/model"
)

// Catalog is an immutable, ordered list of components.
type Catalog struct {
	components []model.Component
	positions  map[string]int
}

// New creates a Catalog from the given components, in migration order.
// It fails when a component's declared references violate that order,
// which would make the fixed-order substitute for dependency
// resolution unsound.
func New(components ...model.Component) (*Catalog, error) {
	positions := make(map[string]int, len(components))
	for i, component := range components {
		if _, ok := positions[component.Name]; ok {
			return nil, errors.Errorf("duplicate catalog entry %q", component.Name)
		}
		positions[component.Name] = i
	}

	for i, component := range components {
		for _, ref := range component.Refs {
			pos, ok := positions[ref.Target]
			if !ok {
				return nil, errors.Errorf("component %q references unknown type %q", component.Name, ref.Target)
			}
			if pos >= i {
				return nil, errors.Errorf("component %q references %q which is not earlier in catalog order", component.Name, ref.Target)
			}
		}
	}

	return &Catalog{components: components, positions: positions}, nil
}

// MustNew is like New but panics on error. It is intended for the
// statically defined default catalog.
func MustNew(components ...model.Component) *Catalog {
	c, err := New(components...)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns every component name in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.components))
	for _, component := range c.components {
		names = append(names, component.Name)
	}
	return names
}

// Get returns the component with the given name.
func (c *Catalog) Get(name string) (model.Component, bool) {
	pos, ok := c.positions[name]
	if !ok {
		return model.Component{}, false
	}
	return c.components[pos], true
}

// OrderedList returns the subset of requested present in the catalog,
// in catalog order. Names not recognized by the catalog are rejected,
// never silently dropped.
func (c *Catalog) OrderedList(requested []string) ([]string, error) {
	wanted := make(map[string]bool, len(requested))
	var unknown []string
	for _, name := range requested {
		if _, ok := c.positions[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		wanted[name] = true
	}
	if len(unknown) > 0 {
		return nil, migration.NewValidationErrorf("unknown component types: %s", strings.Join(unknown, ", "))
	}

	ordered := make([]string, 0, len(wanted))
	for _, component := range c.components {
		if wanted[component.Name] {
			ordered = append(ordered, component.Name)
		}
	}
	return ordered, nil
}

// Resolve computes the ordered component list for a job: the requested
// components when given, otherwise the full catalog minus the ignored
// ones. Both inputs are validated against the catalog.
func (c *Catalog) Resolve(components, ignored []string) ([]string, error) {
	if len(components) > 0 {
		return c.OrderedList(components)
	}

	if _, err := c.OrderedList(ignored); err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(ignored))
	for _, name := range ignored {
		skip[name] = true
	}

	ordered := make([]string, 0, len(c.components))
	for _, component := range c.components {
		if !skip[component.Name] {
			ordered = append(ordered, component.Name)
		}
	}
	return ordered, nil
}

// Default is the catalog of helpdesk configuration entity types, in
// migration order.
var Default = MustNew(
	model.Component{Name: "custom_statuses"},
	model.Component{Name: "groups"},
	model.Component{Name: "custom_roles"},
	model.Component{Name: "ticket_fields"},
	model.Component{Name: "ticket_forms", Refs: []model.Reference{
		{Field: "ticket_field_ids", Target: "ticket_fields", List: true},
	}},
	model.Component{Name: "brands"},
	model.Component{Name: "dynamic_content"},
	model.Component{Name: "macros", Refs: []model.Reference{
		{Field: "group_id", Target: "groups"},
	}},
	model.Component{Name: "triggers", Refs: []model.Reference{
		{Field: "group_id", Target: "groups"},
		{Field: "ticket_form_id", Target: "ticket_forms"},
		{Field: "brand_id", Target: "brands"},
	}},
	model.Component{Name: "trigger_categories"},
	model.Component{Name: "views", Refs: []model.Reference{
		{Field: "group_id", Target: "groups"},
		{Field: "brand_id", Target: "brands"},
	}},
	model.Component{Name: "webhooks"},
	model.Component{Name: "apps"},
	model.Component{Name: "skills"},
)
