package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shrimpsizemoose/kamrat/internal/eval"
	"github.com/shrimpsizemoose/kamrat/internal/report"
	"github.com/shrimpsizemoose/kamrat/internal/store"
)

// Service wires the store, the evaluation pipeline and the report engine
// behind one handle. It holds no mutable state of its own between calls; the
// store is the only shared resource.
type Service struct {
	Config    *Config
	Store     store.EntityStore
	Validator *eval.Validator
	Recorder  *eval.Recorder
	Reporter  *report.Reporter
	Auth      *Auth
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	entityStore, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	return &Service{
		Config:    config,
		Store:     entityStore,
		Validator: eval.NewValidator(entityStore),
		Recorder:  eval.NewRecorder(entityStore),
		Reporter:  report.NewReporter(entityStore),
		Auth:      auth,
	}, nil
}

// ValidateAuthAndInstructor checks the bearer token for the instructor named
// in the request headers. A no-op when auth is disabled in config.
func (s *Service) ValidateAuthAndInstructor(r *http.Request) error {
	if !s.Config.Server.EnableAuth {
		return nil
	}

	instructor := r.Header.Get(s.Config.API.InstructorHeader)
	if instructor == "" {
		return fmt.Errorf("no instructor specified")
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return fmt.Errorf("Invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	return s.Auth.ValidateToken(r.Context(), instructor, token)
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
