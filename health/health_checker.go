// Package health reports whether the prescription service has a usable,
// recently reloaded medicine catalog.
package health

import (
	"maps"
	"math"
	"net/http"
	"time"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/scheduler"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store        interfaces.CatalogStore
	reloadTimes  []string
	integrations map[string]bool
	now          func() time.Time
}

// NewHealthChecker creates a health checker. integrations names the
// optional collaborators and whether each is configured.
func NewHealthChecker(store interfaces.CatalogStore, reloadTimes []string, integrations map[string]bool) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:        store,
		reloadTimes:  reloadTimes,
		integrations: maps.Clone(integrations),
		now:          time.Now,
	}
}

// HealthCheck is unhealthy with an empty catalog and degraded once the
// catalog is older than two reload periods. A degraded service still
// answers requests, so only unhealthy returns 503.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	cat := h.store.GetCatalog()
	lastUpdate := h.store.GetLastUpdated()
	isUpdating := h.store.IsUpdating()
	now := h.now()

	catalogAge := now.Sub(lastUpdate)
	staleAfter := 2 * scheduler.ReloadPeriod(h.reloadTimes)

	switch {
	case cat.Len() == 0:
		status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable

	case catalogAge > staleAfter:
		status = StatusDegraded
		httpStatus = http.StatusOK

	default:
		status = StatusHealthy
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":       lastUpdate.Format(time.RFC3339),
		"catalog_age_hours": math.Round(catalogAge.Hours()*10) / 10,
		"catalog_source":    cat.Source(),
		"medicines":         cat.Len(),
		"is_updating":       isUpdating,
		"next_update":       h.CalculateNextUpdate().Format(time.RFC3339),
	}

	if start := h.store.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = int64(now.Sub(start).Seconds())
	}

	if len(h.integrations) > 0 {
		data["integrations"] = maps.Clone(h.integrations)
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog reload
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return scheduler.NextReload(h.now(), h.reloadTimes)
}
