package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("llm client not configured")

// LLMClient define la interfaz para generar texto e imágenes con un LLM.
type LLMClient interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	// GenerateWithImages adjunta imágenes (por URL) al mensaje del usuario.
	GenerateWithImages(ctx context.Context, system, prompt string, imageURLs []string) (string, error)
	// GenerateImage devuelve la URL (o data URL) de una imagen generada.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

const (
	defaultTemperature = 0.4
	defaultMaxTokens   = 800
	defaultImageModel  = "dall-e-3"
	defaultImageSize   = "1024x1024"
	maxResponseBytes   = 1 << 20
)

// HTTPClient habla con cualquier API compatible con chat completions de OpenAI.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	model       string
	imageModel  string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

func NewHTTPClient(baseURL, apiKey, model string, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		imageModel:  defaultImageModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		client:      &http.Client{Timeout: 45 * time.Second},
		logger:      logger,
	}
}

// WithImageModel cambia el modelo usado por GenerateImage.
func (c *HTTPClient) WithImageModel(model string) *HTTPClient {
	if strings.TrimSpace(model) != "" {
		c.imageModel = model
	}
	return c
}

// Generate envía un mensaje de sistema opcional y el prompt, y devuelve el texto del primer choice.
func (c *HTTPClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	return c.GenerateWithImages(ctx, system, prompt, nil)
}

func (c *HTTPClient) GenerateWithImages(ctx context.Context, system, prompt string, imageURLs []string) (string, error) {
	start := time.Now()
	doc, err := c.post(ctx, "/chat/completions", c.buildRequest(system, prompt, imageURLs))
	if err != nil {
		return "", err
	}
	content := doc.Get("choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return "", errors.New("llm empty response")
	}
	c.logger.Debug("llm completion",
		zap.String("model", c.model),
		zap.Int("images", len(imageURLs)),
		zap.Duration("latency", time.Since(start)),
		zap.Int64("total_tokens", doc.Get("usage.total_tokens").Int()),
	)
	return content, nil
}

func (c *HTTPClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	doc, err := c.post(ctx, "/images/generations", imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   defaultImageSize,
	})
	if err != nil {
		return "", err
	}
	if url := doc.Get("data.0.url").String(); url != "" {
		return url, nil
	}
	if b64 := doc.Get("data.0.b64_json").String(); b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", errors.New("llm empty image response")
}

// post envía el payload y devuelve el cuerpo ya validado como JSON.
func (c *HTTPClient) post(ctx context.Context, path string, body any) (gjson.Result, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return gjson.Result{}, ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	doc := gjson.ParseBytes(raw)

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error response",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
			zap.String("reason", doc.Get("error.message").String()),
		)
		return gjson.Result{}, fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("llm non-json response: %q", truncate(string(raw), 200))
	}
	if msg := doc.Get("error.message"); msg.Exists() {
		return gjson.Result{}, fmt.Errorf("llm api error: %s", msg.String())
	}
	return doc, nil
}

func (c *HTTPClient) buildRequest(system, prompt string, imageURLs []string) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}

	var content any = prompt
	if len(imageURLs) > 0 {
		parts := make([]contentPart, 0, len(imageURLs)+1)
		parts = append(parts, contentPart{Type: "text", Text: prompt})
		for _, u := range imageURLs {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: u}})
		}
		content = parts
	}
	messages = append(messages, chatMessage{Role: "user", Content: content})

	return chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage.Content es texto plano o una lista de partes (texto + imágenes).
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}
