package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/metrics"
	"github.com/shrimpsizemoose/kamrat/internal/report"
)

type ReportHandler struct {
	service *app.Service
}

func NewReportHandler(service *app.Service) *ReportHandler {
	return &ReportHandler{
		service: service,
	}
}

func (h *ReportHandler) handle(w http.ResponseWriter, r *http.Request, build func(id int64) (interface{}, error)) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			fmt.Sprintf("%d", status),
		).Observe(duration)
	}()

	if !h.service.ValidateHeaders(r.Header) {
		status = http.StatusNotFound
		http.Error(w, "these are not the droids you are looking for", status)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		status = http.StatusUnauthorized
		http.Error(w, "Unauthorized", status)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		status = http.StatusBadRequest
		http.Error(w, "Invalid id", status)
		return
	}

	payload, err := build(id)
	if err != nil {
		if errors.Is(err, report.ErrTeamNotFound) ||
			errors.Is(err, report.ErrProjectNotFound) ||
			errors.Is(err, report.ErrUserNotFound) ||
			errors.Is(err, report.ErrFormNotFound) {
			status = http.StatusNotFound
			http.Error(w, err.Error(), status)
			return
		}
		logger.Error.Printf("Failed to build report: %v", err)
		status = http.StatusInternalServerError
		http.Error(w, "Failed to build report", status)
		return
	}

	writeJSON(w, status, map[string]interface{}{
		"report": payload,
	})
}

func (h *ReportHandler) HandleTeamReport(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id int64) (interface{}, error) {
		return h.service.Reporter.TeamReport(id)
	})
}

func (h *ReportHandler) HandleProjectReport(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id int64) (interface{}, error) {
		return h.service.Reporter.ProjectReport(id)
	})
}

func (h *ReportHandler) HandleUserReport(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id int64) (interface{}, error) {
		return h.service.Reporter.UserReport(id)
	})
}

func (h *ReportHandler) HandleFormReport(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, func(id int64) (interface{}, error) {
		return h.service.Reporter.FormReport(id)
	})
}
