// Package models holds the static table that maps client-facing model ids to
// upstream backend identifiers.
package models

import (
	"errors"
	"fmt"
	"slices"
)

// Model is one entry of the catalog.
type Model struct {
	// ID is the identifier clients send, e.g. "claude-sonnet-4-5".
	ID string
	// BackendID is the identifier passed to the upstream engine.
	BackendID     string
	DisplayName   string
	ContextWindow int
	OwnedBy       string
	// Created is a Unix timestamp reported by the models endpoint.
	Created int64
}

// Catalog is an immutable model table with a default entry for unknown ids.
// It is safe for concurrent use.
type Catalog struct {
	models    []Model
	byID      map[string]int
	defaultID string
}

// NewCatalog builds a catalog. Ids must be unique and defaultID must be one of them.
func NewCatalog(entries []Model, defaultID string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog requires at least one model")
	}

	c := &Catalog{
		models:    slices.Clone(entries),
		byID:      make(map[string]int, len(entries)),
		defaultID: defaultID,
	}
	for i, m := range c.models {
		if m.ID == "" {
			return nil, fmt.Errorf("model %d: id cannot be empty", i)
		}
		if m.BackendID == "" {
			c.models[i].BackendID = m.ID
		}
		if m.DisplayName == "" {
			c.models[i].DisplayName = m.ID
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		c.byID[m.ID] = i
	}

	if _, ok := c.byID[defaultID]; !ok {
		return nil, fmt.Errorf("default model %q is not in the catalog", defaultID)
	}

	return c, nil
}

// Resolve returns the entry for id, or the default entry when id is unknown.
func (c *Catalog) Resolve(id string) Model {
	if m, ok := c.Lookup(id); ok {
		return m
	}
	return c.models[c.byID[c.defaultID]]
}

// Lookup returns the entry for id and whether it exists.
func (c *Catalog) Lookup(id string) (Model, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Model{}, false
	}
	return c.models[i], true
}

// Default returns the default entry.
func (c *Catalog) Default() Model {
	return c.models[c.byID[c.defaultID]]
}

// List returns all entries in configuration order.
func (c *Catalog) List() []Model {
	return slices.Clone(c.models)
}
