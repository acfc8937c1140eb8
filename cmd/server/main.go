package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/handlers"
)

func main() {
	service, err := app.NewService("config.toml")
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	evaluationHandler := handlers.NewEvaluationHandler(service)
	formHandler := handlers.NewFormHandler(service)
	reportHandler := handlers.NewReportHandler(service)

	http.HandleFunc("POST /api/v1/evaluations", evaluationHandler.HandleSubmit)
	http.HandleFunc("GET /api/v1/evaluations", evaluationHandler.HandleList)
	http.HandleFunc("GET /api/v1/evaluations/{id}", evaluationHandler.HandleGet)
	http.HandleFunc("PUT /api/v1/evaluations/{id}", evaluationHandler.HandleUpdate)
	http.HandleFunc("DELETE /api/v1/evaluations/{id}", evaluationHandler.HandleDelete)

	http.HandleFunc("POST /api/v1/forms", formHandler.HandleCreate)
	http.HandleFunc("GET /api/v1/forms", formHandler.HandleList)
	http.HandleFunc("GET /api/v1/forms/{id}", formHandler.HandleGet)
	http.HandleFunc("PUT /api/v1/forms/{id}", formHandler.HandleUpdate)
	http.HandleFunc("DELETE /api/v1/forms/{id}", formHandler.HandleDelete)
	http.HandleFunc("POST /api/v1/forms/{id}/criteria", formHandler.HandleAddCriterion)
	http.HandleFunc("PUT /api/v1/forms/{id}/criteria/{criterionID}", formHandler.HandleUpdateCriterion)
	http.HandleFunc("DELETE /api/v1/forms/{id}/criteria/{criterionID}", formHandler.HandleDeleteCriterion)

	http.HandleFunc("GET /api/v1/reports/team/{id}", reportHandler.HandleTeamReport)
	http.HandleFunc("GET /api/v1/reports/project/{id}", reportHandler.HandleProjectReport)
	http.HandleFunc("GET /api/v1/reports/user/{id}", reportHandler.HandleUserReport)
	http.HandleFunc("GET /api/v1/reports/form/{id}", reportHandler.HandleFormReport)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting kamrat server on %s", service.Config.Server.Port)
	logger.Debug.Println("Requiring headers:")
	for _, h := range service.Config.API.RequiredHeaders {
		logger.Debug.Printf("  %s: %s", h.Name, h.Value)
	}
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Kamrat server failed: %v", err)
	}
}
