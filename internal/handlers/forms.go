package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/models"
)

type FormHandler struct {
	service *app.Service
}

func NewFormHandler(service *app.Service) *FormHandler {
	return &FormHandler{
		service: service,
	}
}

// HandleCreate stores a form with its criteria. The criterion point caps must
// sum to the form's max_score or the whole request is rejected.
func (h *FormHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input models.FormInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := input.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	project, err := h.service.Store.GetProject(input.ProjectID)
	if err != nil {
		logger.Error.Printf("Failed to look up project %d: %v", input.ProjectID, err)
		http.Error(w, "Failed to create form", http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	form := models.EvaluationForm{
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		MaxScore:    input.MaxScore,
	}
	if err := h.service.Store.CreateForm(&form); err != nil {
		logger.Error.Printf("Failed to create form: %v", err)
		http.Error(w, "Failed to create form", http.StatusInternalServerError)
		return
	}

	criteria := make([]models.FormCriterion, 0, len(input.Criteria))
	for _, c := range input.Criteria {
		criterion := models.FormCriterion{
			FormID:     form.ID,
			Text:       c.Text,
			MaxPoints:  c.MaxPoints,
			OrderIndex: c.OrderIndex,
		}
		if err := h.service.Store.CreateCriterion(&criterion); err != nil {
			logger.Error.Printf("Failed to create criterion for form %d: %v", form.ID, err)
			http.Error(w, "Failed to create form criteria", http.StatusInternalServerError)
			return
		}
		criteria = append(criteria, criterion)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"form":     form,
		"criteria": criteria,
	})
}

func (h *FormHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	projectID, ok := queryID(r, "project_id")
	if !ok {
		http.Error(w, "Invalid project_id", http.StatusBadRequest)
		return
	}

	forms, err := h.service.Store.ListForms(projectID)
	if err != nil {
		logger.Error.Printf("Failed to list forms: %v", err)
		http.Error(w, "Failed to list forms", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"forms": forms,
		"count": len(forms),
	})
}

func (h *FormHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid form id", http.StatusBadRequest)
		return
	}

	form, err := h.service.Store.GetForm(id)
	if err != nil {
		logger.Error.Printf("Failed to get form %d: %v", id, err)
		http.Error(w, "Failed to get form", http.StatusInternalServerError)
		return
	}
	if form == nil {
		http.Error(w, "Form not found", http.StatusNotFound)
		return
	}

	criteria, err := h.service.Store.ListFormCriteria(id)
	if err != nil {
		logger.Error.Printf("Failed to list criteria for form %d: %v", id, err)
		http.Error(w, "Failed to get form criteria", http.StatusInternalServerError)
		return
	}

	usage, err := h.service.Store.CountEvaluationsByForm(id)
	if err != nil {
		logger.Error.Printf("Failed to count evaluations for form %d: %v", id, err)
		http.Error(w, "Failed to get form usage", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":        form,
		"criteria":    criteria,
		"usage_count": usage,
	})
}

func (h *FormHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid form id", http.StatusBadRequest)
		return
	}

	form, err := h.service.Store.GetForm(id)
	if err != nil {
		logger.Error.Printf("Failed to get form %d: %v", id, err)
		http.Error(w, "Failed to update form", http.StatusInternalServerError)
		return
	}
	if form == nil {
		http.Error(w, "Form not found", http.StatusNotFound)
		return
	}

	var patch models.FormPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Store.UpdateForm(id, patch); err != nil {
		logger.Error.Printf("Failed to update form %d: %v", id, err)
		http.Error(w, "Failed to update form", http.StatusInternalServerError)
		return
	}

	updated, err := h.service.Store.GetForm(id)
	if err != nil {
		logger.Error.Printf("Failed to reload form %d: %v", id, err)
		http.Error(w, "Failed to update form", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form": updated,
	})
}

// HandleDelete refuses to drop a form that evaluations still reference.
func (h *FormHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid form id", http.StatusBadRequest)
		return
	}

	usage, err := h.service.Store.CountEvaluationsByForm(id)
	if err != nil {
		logger.Error.Printf("Failed to count evaluations for form %d: %v", id, err)
		http.Error(w, "Failed to delete form", http.StatusInternalServerError)
		return
	}
	if usage > 0 {
		http.Error(w, fmt.Sprintf("Cannot delete form, it is used in %d evaluation(s)", usage), http.StatusBadRequest)
		return
	}

	criteria, err := h.service.Store.ListFormCriteria(id)
	if err != nil {
		logger.Error.Printf("Failed to list criteria for form %d: %v", id, err)
		http.Error(w, "Failed to delete form", http.StatusInternalServerError)
		return
	}
	for _, c := range criteria {
		if _, err := h.service.Store.DeleteCriterion(c.ID); err != nil {
			logger.Error.Printf("Failed to delete criterion %d: %v", c.ID, err)
			http.Error(w, "Failed to delete form criteria", http.StatusInternalServerError)
			return
		}
	}

	deleted, err := h.service.Store.DeleteForm(id)
	if err != nil {
		logger.Error.Printf("Failed to delete form %d: %v", id, err)
		http.Error(w, "Failed to delete form", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Form not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": id,
	})
}

func (h *FormHandler) HandleAddCriterion(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	formID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid form id", http.StatusBadRequest)
		return
	}

	form, err := h.service.Store.GetForm(formID)
	if err != nil {
		logger.Error.Printf("Failed to get form %d: %v", formID, err)
		http.Error(w, "Failed to add criterion", http.StatusInternalServerError)
		return
	}
	if form == nil {
		http.Error(w, "Form not found", http.StatusNotFound)
		return
	}

	var input models.CriterionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	criterion := models.FormCriterion{
		FormID:     formID,
		Text:       input.Text,
		MaxPoints:  input.MaxPoints,
		OrderIndex: input.OrderIndex,
	}
	if err := h.service.Store.CreateCriterion(&criterion); err != nil {
		logger.Error.Printf("Failed to add criterion to form %d: %v", formID, err)
		http.Error(w, "Failed to add criterion", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"criterion": criterion,
	})
}

func (h *FormHandler) HandleUpdateCriterion(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	formID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid form id", http.StatusBadRequest)
		return
	}
	criterionID, ok := pathID(r, "criterionID")
	if !ok {
		http.Error(w, "Invalid criterion id", http.StatusBadRequest)
		return
	}

	criterion, err := h.service.Store.GetCriterion(criterionID)
	if err != nil {
		logger.Error.Printf("Failed to get criterion %d: %v", criterionID, err)
		http.Error(w, "Failed to update criterion", http.StatusInternalServerError)
		return
	}
	if criterion == nil || criterion.FormID != formID {
		http.Error(w, "Criterion not found or does not belong to this form", http.StatusNotFound)
		return
	}

	var patch struct {
		Text       *string `json:"text"`
		MaxPoints  *int    `json:"max_points"`
		OrderIndex *int    `json:"order_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Store.UpdateCriterion(criterionID, patch.Text, patch.MaxPoints, patch.OrderIndex); err != nil {
		logger.Error.Printf("Failed to update criterion %d: %v", criterionID, err)
		http.Error(w, "Failed to update criterion", http.StatusInternalServerError)
		return
	}

	updated, err := h.service.Store.GetCriterion(criterionID)
	if err != nil {
		logger.Error.Printf("Failed to reload criterion %d: %v", criterionID, err)
		http.Error(w, "Failed to update criterion", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"criterion": updated,
	})
}

// HandleDeleteCriterion refuses to drop a criterion that score entries cite.
func (h *FormHandler) HandleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	if err := h.service.ValidateAuthAndInstructor(r); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	formID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid form id", http.StatusBadRequest)
		return
	}
	criterionID, ok := pathID(r, "criterionID")
	if !ok {
		http.Error(w, "Invalid criterion id", http.StatusBadRequest)
		return
	}

	criterion, err := h.service.Store.GetCriterion(criterionID)
	if err != nil {
		logger.Error.Printf("Failed to get criterion %d: %v", criterionID, err)
		http.Error(w, "Failed to delete criterion", http.StatusInternalServerError)
		return
	}
	if criterion == nil || criterion.FormID != formID {
		http.Error(w, "Criterion not found or does not belong to this form", http.StatusNotFound)
		return
	}

	used, err := h.service.Store.CountScoreEntriesByCriterion(criterionID)
	if err != nil {
		logger.Error.Printf("Failed to count score entries for criterion %d: %v", criterionID, err)
		http.Error(w, "Failed to delete criterion", http.StatusInternalServerError)
		return
	}
	if used > 0 {
		http.Error(w, fmt.Sprintf("Cannot delete criterion, it is used in %d score entr(ies)", used), http.StatusBadRequest)
		return
	}

	if _, err := h.service.Store.DeleteCriterion(criterionID); err != nil {
		logger.Error.Printf("Failed to delete criterion %d: %v", criterionID, err)
		http.Error(w, "Failed to delete criterion", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": criterionID,
	})
}
