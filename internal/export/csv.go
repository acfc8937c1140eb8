package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kamrat/internal/app"
	"github.com/shrimpsizemoose/kamrat/internal/report"
)

// CSVExporter periodically dumps per-project report snapshots to disk, one
// CSV row per team member.
type CSVExporter struct {
	config    *app.Config
	reporter  *report.Reporter
	scheduler *gocron.Scheduler
}

func NewCSVExporter(config *app.Config, reporter *report.Reporter) (*CSVExporter, error) {
	if config.Export.OutputDir == "" {
		return nil, fmt.Errorf("export output_dir is not configured")
	}
	if err := os.MkdirAll(config.Export.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	e := &CSVExporter{
		config:    config,
		reporter:  reporter,
		scheduler: gocron.NewScheduler(time.UTC),
	}

	every := config.Export.EveryMinutes
	if every <= 0 {
		every = 60
	}
	if _, err := e.scheduler.Every(every).Minutes().Do(e.exportAll); err != nil {
		return nil, fmt.Errorf("failed to schedule export: %w", err)
	}

	return e, nil
}

func (e *CSVExporter) Start() {
	e.scheduler.StartAsync()
}

func (e *CSVExporter) Stop() {
	e.scheduler.Stop()
}

func (e *CSVExporter) exportAll() {
	for _, projectID := range e.config.Export.ProjectIDs {
		if err := e.exportProject(projectID); err != nil {
			logger.Error.Printf("Failed to export project %d: %v", projectID, err)
		}
	}
}

func (e *CSVExporter) exportProject(projectID int64) error {
	stats, err := e.reporter.ProjectReport(projectID)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	name := fmt.Sprintf("project_%d_%s.csv", projectID, time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(e.config.Export.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"team", "member", "evaluations_received", "average_score"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, team := range stats.Teams {
		for _, member := range team.Members {
			row := []string{
				team.Team.Name,
				member.Member.Name,
				strconv.Itoa(member.EvaluationsReceived),
				strconv.FormatFloat(member.AverageScore, 'f', 2, 64),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	logger.Info.Printf("Exported project %d report to %s", projectID, path)
	return nil
}
