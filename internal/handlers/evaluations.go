package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/eval"
	"github.com/shrimpsizemoose/kamrat/internal/metrics"
	"github.com/shrimpsizemoose/kamrat/internal/models"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

type EvaluationHandler struct {
	service *app.Service
}

func NewEvaluationHandler(service *app.Service) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
	}
}

func (h *EvaluationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusCreated
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			fmt.Sprintf("%d", status),
		).Observe(duration)
	}()

	if !h.service.ValidateHeaders(r.Header) {
		status = http.StatusForbidden
		http.Error(w, "these are not the droids you are looking for", status)
		return
	}

	var sub models.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		status = http.StatusBadRequest
		http.Error(w, "Invalid request body", status)
		return
	}

	if err := sub.Validate(); err != nil {
		status = http.StatusBadRequest
		http.Error(w, err.Error(), status)
		return
	}

	admitted, err := h.service.Validator.Validate(sub)
	if err != nil {
		status = h.rejectSubmission(w, sub, err)
		return
	}

	evaluation, entries, err := h.service.Recorder.Record(admitted)
	if err != nil {
		var partial *eval.PartialWriteError
		if errors.As(err, &partial) {
			logger.Error.Printf("Partial write for evaluation %d: %v", partial.EvaluationID, partial)
			metrics.EvaluationsTotal.WithLabelValues(fmt.Sprintf("%d", sub.FormID), "partial").Inc()
			status = http.StatusInternalServerError
			writeJSON(w, status, map[string]interface{}{
				"error":         "not all score entries were stored",
				"evaluation_id": partial.EvaluationID,
				"stored_scores": partial.Stored,
				"total_scores":  partial.Total,
			})
			return
		}
		status = h.rejectSubmission(w, sub, err)
		return
	}

	metrics.EvaluationsTotal.WithLabelValues(fmt.Sprintf("%d", sub.FormID), "admitted").Inc()
	metrics.EvaluationScoreHistogram.WithLabelValues(fmt.Sprintf("%d", sub.FormID)).Observe(float64(sub.TotalScore))

	writeJSON(w, status, map[string]interface{}{
		"evaluation": evaluation,
		"scores":     entries,
	})
}

func (h *EvaluationHandler) rejectSubmission(w http.ResponseWriter, sub models.Submission, err error) int {
	reason := eval.ReasonOf(err)
	if reason == "" {
		logger.Error.Printf("Failed to process submission: %v", err)
		http.Error(w, "Failed to process submission", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	metrics.EvaluationsTotal.WithLabelValues(fmt.Sprintf("%d", sub.FormID), "rejected").Inc()
	metrics.ValidationFailuresTotal.WithLabelValues(string(reason)).Inc()

	status := http.StatusBadRequest
	if eval.IsNotFound(err) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]interface{}{
		"reason": reason,
		"error":  err.Error(),
	})
	return status
}

func (h *EvaluationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	var filter store.EvaluationFilter
	var ok bool
	if filter.FormID, ok = queryID(r, "form_id"); !ok {
		http.Error(w, "Invalid form_id", http.StatusBadRequest)
		return
	}
	if filter.TeamID, ok = queryID(r, "team_id"); !ok {
		http.Error(w, "Invalid team_id", http.StatusBadRequest)
		return
	}
	if filter.EvaluatorID, ok = queryID(r, "evaluator_id"); !ok {
		http.Error(w, "Invalid evaluator_id", http.StatusBadRequest)
		return
	}
	if filter.EvaluateeID, ok = queryID(r, "evaluatee_id"); !ok {
		http.Error(w, "Invalid evaluatee_id", http.StatusBadRequest)
		return
	}

	evaluations, err := h.service.Store.ListEvaluations(filter)
	if err != nil {
		logger.Error.Printf("Failed to list evaluations: %v", err)
		http.Error(w, "Failed to list evaluations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": evaluations,
		"count":       len(evaluations),
	})
}

func (h *EvaluationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	evaluation, err := h.service.Store.GetEvaluation(id)
	if err != nil {
		logger.Error.Printf("Failed to get evaluation %d: %v", id, err)
		http.Error(w, "Failed to get evaluation", http.StatusInternalServerError)
		return
	}
	if evaluation == nil {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}

	entries, err := h.service.Store.ListScoreEntries(id)
	if err != nil {
		logger.Error.Printf("Failed to list score entries for %d: %v", id, err)
		http.Error(w, "Failed to get evaluation scores", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluation": evaluation,
		"scores":     entries,
	})
}

func (h *EvaluationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	var patch models.EvaluationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	evaluation, entries, err := h.service.Recorder.Update(id, patch)
	if err != nil {
		var partial *eval.PartialWriteError
		if errors.As(err, &partial) {
			logger.Error.Printf("Partial score replace for evaluation %d: %v", id, partial)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":         "not all score entries were stored",
				"evaluation_id": id,
				"stored_scores": partial.Stored,
				"total_scores":  partial.Total,
			})
			return
		}
		if reason := eval.ReasonOf(err); reason != "" {
			status := http.StatusBadRequest
			if eval.IsNotFound(err) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]interface{}{
				"reason": reason,
				"error":  err.Error(),
			})
			return
		}
		logger.Error.Printf("Failed to update evaluation %d: %v", id, err)
		http.Error(w, "Failed to update evaluation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluation": evaluation,
		"scores":     entries,
	})
}

func (h *EvaluationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	if err := h.service.Recorder.Delete(id); err != nil {
		if eval.IsNotFound(err) {
			http.Error(w, "Evaluation not found", http.StatusNotFound)
			return
		}
		logger.Error.Printf("Failed to delete evaluation %d: %v", id, err)
		http.Error(w, "Failed to delete evaluation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": id,
	})
}
