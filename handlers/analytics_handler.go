package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/avery-dunn/entomosysbackend/services"
)

type AnalyticsHandler struct {
	Analytics *services.AnalyticsService
}

// dateRangeFromQuery parses optional start_date / end_date query parameters
// (YYYY-MM-DD). The end bound is inclusive: it extends to the last second of
// the named day.
func dateRangeFromQuery(r *http.Request) (services.DateRange, error) {
	var dateRange services.DateRange

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return dateRange, err
		}
		start := t.Unix()
		dateRange.Start = &start
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return dateRange, err
		}
		end := t.Add(24*time.Hour - time.Second).Unix()
		dateRange.End = &end
	}
	return dateRange, nil
}

func (h *AnalyticsHandler) serve(w http.ResponseWriter, r *http.Request, run func(callerID uint, dateRange services.DateRange) (interface{}, error)) {
	user, ok := userFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
		return
	}

	dateRange, err := dateRangeFromQuery(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_date", "Dates must be formatted YYYY-MM-DD")
		return
	}

	result, err := run(user.ID, dateRange)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated.Error())
			return
		}
		log.Printf("Error computing analytics for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "analytics_error", "Failed to compute analytics")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AnalyticsHandler) ConfidenceDistribution(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(callerID uint, dateRange services.DateRange) (interface{}, error) {
		return h.Analytics.ConfidenceDistribution(callerID, dateRange)
	})
}

func (h *AnalyticsHandler) StageDistribution(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(callerID uint, dateRange services.DateRange) (interface{}, error) {
		return h.Analytics.StageDistribution(callerID, dateRange)
	})
}

func (h *AnalyticsHandler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(callerID uint, dateRange services.DateRange) (interface{}, error) {
		return h.Analytics.DashboardMetrics(callerID, dateRange)
	})
}
