// Package data keeps the current medicine catalog snapshot and swaps it
// atomically when the catalog is reloaded, so requests never observe a
// half-loaded catalog.
package data

import (
	"sync/atomic"
	"time"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
)

// Compile-time check to ensure Store implements CatalogStore
var _ interfaces.CatalogStore = (*Store)(nil)

// Store holds the catalog behind an atomic pointer for zero-downtime reloads.
type Store struct {
	catalog         atomic.Pointer[catalog.Catalog]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewStore creates a store holding an empty catalog.
func NewStore() *Store {
	s := &Store{}
	s.catalog.Store(catalog.Empty())
	s.lastUpdated.Store(time.Time{})
	s.serverStartTime.Store(time.Time{})
	return s
}

// GetCatalog returns the current snapshot. It is never nil.
func (s *Store) GetCatalog() *catalog.Catalog {
	if c := s.catalog.Load(); c != nil {
		return c
	}

	logging.Warn("Catalog snapshot is missing, serving an empty catalog")
	return catalog.Empty()
}

// GetLastUpdated returns the time of the last successful catalog swap.
func (s *Store) GetLastUpdated() time.Time {
	if v := s.lastUpdated.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true while a reload is in progress.
func (s *Store) IsUpdating() bool {
	return s.updating.Load()
}

// SetServerStartTime records when the server started.
func (s *Store) SetServerStartTime(startTime time.Time) {
	s.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time.
func (s *Store) GetServerStartTime() time.Time {
	if v := s.serverStartTime.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateCatalog replaces the snapshot. A nil catalog is stored as empty.
func (s *Store) UpdateCatalog(c *catalog.Catalog) {
	if c == nil {
		c = catalog.Empty()
	}
	s.catalog.Store(c)
	s.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a reload.
// Returns false if another reload is already running.
func (s *Store) BeginUpdate() bool {
	return s.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload.
func (s *Store) EndUpdate() {
	s.updating.Store(false)
}
