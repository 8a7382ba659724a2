package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"healthcure-server/models"
	"healthcure-server/utils/errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	symptomsCacheKey    = "prediction:symptoms"
	symptomsCacheTTL    = time.Hour
	defaultSuggestLimit = 5
	severityMild        = 1
	severitySevere      = 2
)

// PredictionService is a thin client for the external disease prediction backend.
type PredictionService struct {
	baseURL string
	client  *http.Client
	cache   Cache
}

func NewPredictionService(baseURL string, client *http.Client, cache Cache) *PredictionService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PredictionService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cache:   cache,
	}
}

// Symptoms returns the backend's symptom catalogue.
func (s *PredictionService) Symptoms(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, symptomsCacheKey); err == nil {
			var catalog models.SymptomCatalog
			if err := json.Unmarshal(cached, &catalog); err == nil {
				return catalog.Symptoms, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/symptoms", nil)
	if err != nil {
		return nil, errors.ErrBackend.WithCause(err)
	}
	var catalog models.SymptomCatalog
	if err := s.do(req, &catalog); err != nil {
		return nil, err
	}
	if catalog.Symptoms == nil {
		catalog.Symptoms = []string{}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(catalog); err == nil {
			if err := s.cache.Set(ctx, symptomsCacheKey, payload, symptomsCacheTTL); err != nil {
				log.Warn().Err(err).Msg("Failed to cache symptom catalogue")
			}
		}
	}
	return catalog.Symptoms, nil
}

// SuggestSymptoms returns up to limit catalogue entries containing query, case-insensitively, in
// catalogue order.
func (s *PredictionService) SuggestSymptoms(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	symptoms, err := s.Symptoms(ctx)
	if err != nil {
		return nil, err
	}
	return MatchSymptoms(symptoms, query, limit), nil
}

// MatchSymptoms filters symptoms by case-insensitive substring.
func MatchSymptoms(symptoms []string, query string, limit int) []string {
	query = strings.ToLower(query)
	out := []string{}
	for _, symptom := range symptoms {
		if strings.Contains(strings.ToLower(symptom), query) {
			out = append(out, symptom)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Predict validates the selection and forwards it to the backend. Rows without a symptom are dropped.
func (s *PredictionService) Predict(ctx context.Context, selected []models.SymptomSeverity) (*models.Prediction, error) {
	valid := make([]models.SymptomSeverity, 0, len(selected))
	for _, item := range selected {
		item.Symptom = strings.TrimSpace(item.Symptom)
		if item.Symptom == "" {
			continue
		}
		if item.Severity != severityMild && item.Severity != severitySevere {
			return nil, errors.ErrInvalidSeverity
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return nil, errors.ErrNoSymptoms
	}

	body, err := json.Marshal(models.PredictRequest{Symptoms: valid})
	if err != nil {
		return nil, errors.ErrInternal
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, errors.ErrBackend.WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	var prediction models.Prediction
	if err := s.do(req, &prediction); err != nil {
		return nil, err
	}
	log.Info().
		Int("symptoms", len(valid)).
		Str("disease", prediction.PredictedDisease).
		Msg("Prediction received")
	return &prediction, nil
}

func (s *PredictionService) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", req.URL.String()).Msg("Prediction backend unreachable")
		return errors.ErrBackend.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("url", req.URL.String()).Msg("Prediction backend error")
		return errors.ErrBackend.WithCause(fmt.Errorf("prediction backend returned status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.ErrBackend.WithCause(fmt.Errorf("failed to decode prediction backend response: %w", err))
	}
	return nil
}
