package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marinova/internal/domain"
	"marinova/internal/llm"
	"marinova/internal/weather"
)

const (
	weatherAnalystPrompt = "You are a marine weather analyst. Write a short brief for fishermen and sailors covering wind, waves, visibility and safety."
	oceanChatPrompt      = "You are Marinova, an ocean and coastal weather assistant. Answer concisely and flag safety concerns."
	researchReportPrompt = "You are an oceanography researcher. Write a structured report with summary, findings and recommendations."
	monthlyInsightPrompt = "You are an ocean conditions analyst. Summarise notable ocean trends for the current month."
)

const (
	maxChatMessages = 50
	maxChatImages   = 4
	maxImagePrompt  = 1000
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WeatherBrief es la entrada del análisis de clima. Si Weather viene vacío se consulta al proveedor.
type WeatherBrief struct {
	LocationName string
	Lat          float64
	Lon          float64
	Weather      json.RawMessage
}

// AIResult trae el texto generado y el saldo que quedó después del cobro.
type AIResult struct {
	Text  string
	Usage TrackResult
}

// AIService pasa cada generación por el control de uso antes de llamar al LLM.
// Si el proveedor falla después del cobro, el crédito no se devuelve.
type AIService struct {
	logger  *zap.Logger
	usage   *UsageService
	llm     llm.LLMClient
	weather weather.Provider
}

func NewAIService(logger *zap.Logger, usage *UsageService, llmClient llm.LLMClient, weatherProvider weather.Provider) *AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIService{
		logger:  logger,
		usage:   usage,
		llm:     llmClient,
		weather: weatherProvider,
	}
}

func (s *AIService) AnalyzeWeather(ctx context.Context, userID string, brief WeatherBrief) (AIResult, error) {
	brief.LocationName = strings.TrimSpace(brief.LocationName)
	if brief.LocationName == "" || !weather.ValidCoordinates(brief.Lat, brief.Lon) {
		return AIResult{}, newValidationError("Missing required fields")
	}
	if len(brief.Weather) > 0 && !json.Valid(brief.Weather) {
		return AIResult{}, newValidationError("Weather data must be valid JSON")
	}

	track, err := s.usage.Track(ctx, userID, string(domain.FeatureForecast))
	if err != nil {
		return AIResult{}, err
	}

	data := brief.Weather
	if len(data) == 0 {
		if s.weather == nil {
			return AIResult{Usage: track}, fmt.Errorf("%w: weather provider not configured", ErrProviderFailure)
		}
		data, err = s.weather.Fetch(ctx, brief.Lat, brief.Lon)
		if err != nil {
			s.logger.Warn("weather fetch failed", zap.Error(err), zap.String("user_id", userID))
			return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}
	}

	prompt := fmt.Sprintf("Location: %s (%.4f, %.4f)\nWeather data (JSON):\n%s",
		brief.LocationName, brief.Lat, brief.Lon, string(data))
	return s.generate(ctx, userID, track, weatherAnalystPrompt, prompt, nil)
}

// Chat responde la conversación; imageURLs son imágenes opcionales adjuntas al último turno.
func (s *AIService) Chat(ctx context.Context, userID string, messages []ChatMessage, imageURLs []string) (AIResult, error) {
	if len(messages) == 0 || len(messages) > maxChatMessages {
		return AIResult{}, newValidationError("Invalid messages format")
	}
	var transcript strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return AIResult{}, newValidationError("Invalid messages format")
		}
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role == "" {
			role = "user"
		}
		transcript.WriteString(role)
		transcript.WriteString(": ")
		transcript.WriteString(content)
		transcript.WriteString("\n")
	}
	images, err := cleanImageURLs(imageURLs)
	if err != nil {
		return AIResult{}, err
	}

	track, err := s.usage.Track(ctx, userID, string(domain.FeatureChat))
	if err != nil {
		return AIResult{}, err
	}
	return s.generate(ctx, userID, track, oceanChatPrompt, transcript.String(), images)
}

func (s *AIService) Report(ctx context.Context, userID, topic string) (AIResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return AIResult{}, newValidationError("Topic is required")
	}
	track, err := s.usage.Track(ctx, userID, string(domain.FeatureReport))
	if err != nil {
		return AIResult{}, err
	}
	return s.generate(ctx, userID, track, researchReportPrompt, "Topic: "+topic, nil)
}

func (s *AIService) Insights(ctx context.Context, userID string) (AIResult, error) {
	track, err := s.usage.Track(ctx, userID, string(domain.FeatureInsights))
	if err != nil {
		return AIResult{}, err
	}
	month := time.Now().UTC().Format("January 2006")
	return s.generate(ctx, userID, track, monthlyInsightPrompt, "Month: "+month, nil)
}

// Image genera una imagen a partir del prompt; Text trae la URL devuelta por el proveedor.
func (s *AIService) Image(ctx context.Context, userID, prompt string) (AIResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return AIResult{}, newValidationError("Prompt is required")
	}
	if len(prompt) > maxImagePrompt {
		return AIResult{}, newValidationError(fmt.Sprintf("Prompt must be at most %d characters", maxImagePrompt))
	}
	track, err := s.usage.Track(ctx, userID, string(domain.FeatureImage))
	if err != nil {
		return AIResult{}, err
	}
	if s.llm == nil {
		return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, llm.ErrNotConfigured)
	}
	url, err := s.llm.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Warn("llm image failed", zap.Error(err), zap.String("user_id", userID))
		return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if strings.TrimSpace(url) == "" {
		return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, errors.New("empty image url"))
	}
	return AIResult{Text: url, Usage: track}, nil
}

// cleanImageURLs acepta solo URLs http(s) o data URLs de imagen.
func cleanImageURLs(raw []string) ([]string, error) {
	if len(raw) > maxChatImages {
		return nil, newValidationError(fmt.Sprintf("At most %d images are allowed", maxChatImages))
	}
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "data:image/") {
			return nil, newValidationError("Invalid image URL")
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *AIService) generate(ctx context.Context, userID string, track TrackResult, system, prompt string, images []string) (AIResult, error) {
	if s.llm == nil {
		return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, llm.ErrNotConfigured)
	}
	var (
		text string
		err  error
	)
	if len(images) > 0 {
		text, err = s.llm.GenerateWithImages(ctx, system, prompt, images)
	} else {
		text, err = s.llm.Generate(ctx, system, prompt)
	}
	if err != nil {
		s.logger.Warn("llm generate failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("feature", string(track.Feature)),
		)
		return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return AIResult{Usage: track}, fmt.Errorf("%w: %v", ErrProviderFailure, errors.New("empty completion"))
	}
	return AIResult{Text: text, Usage: track}, nil
}
