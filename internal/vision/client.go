package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/2beens/ninjatraining/internal/macros"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	maxTokens     = 500
	temperature   = 0.3
	upstreamLabel = "vision"

	systemPrompt = `You are a professional nutritionist and food analyst. For every photo:
- identify the food items, their portions and how they were prepared
- estimate macros from standard USDA reference values
- take portion size, cooking method and visible ingredients into account
- include added oils, sauces and condiments
- split mixed dishes into components before estimating`

	userPrompt = `Analyze this food image and estimate its macros, including portion sizes. ` +
		`Return ONLY a JSON object in exactly this format: ` +
		`{"description": "food description with portion sizes", "macros": {"calories": number, "protein": number, "carbs": number, "fats": number}}`
)

var (
	ErrEmptyResponse          = errors.New("no response content")
	ErrInvalidResponseFormat  = errors.New("invalid response format")
	ErrUnauthorized           = errors.New("invalid vision API key")
	ErrRateLimited            = errors.New("vision API rate limit exceeded")
	ErrBadRequest             = errors.New("vision API rejected the request")
	ErrAnalyzeFailed          = errors.New("failed to analyze image")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")

	codeFenceRegex = regexp.MustCompile("```(?:json)?\\s*|\\s*```")

	supportedImageTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
	}
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

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

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client estimates the macros of a food photo through an OpenAI compatible
// chat completions API.
type Client struct {
	baseURL        string
	apiKey         string
	model          string
	httpClient     *http.Client
	metricsManager *metrics.Manager
}

func NewClient(
	baseURL, apiKey, model string,
	httpClient *http.Client,
	metricsManager *metrics.Manager,
) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		apiKey:         apiKey,
		model:          model,
		httpClient:     httpClient,
		metricsManager: metricsManager,
	}
}

// ImageContentType sniffs the image type; only jpeg and png are accepted.
func ImageContentType(image []byte) (string, error) {
	contentType := http.DetectContentType(image)
	if !supportedImageTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImageFormat, contentType)
	}
	return contentType, nil
}

func (c *Client) Analyze(ctx context.Context, image []byte) (_ *macros.MacroData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "vision.analyze")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	contentType, err := ImageContentType(image)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("image.type", contentType),
		attribute.Int("image.size", len(image)),
	)

	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))
	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			}},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, false)
		return nil, fmt.Errorf("%w: http client do: %w", ErrAnalyzeFailed, err)
	}
	defer resp.Body.Close()
	c.observe(start, resp.StatusCode < 300)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrAnalyzeFailed, err)
	}

	if err := statusError(resp.StatusCode); err != nil {
		log.Errorf("vision api responded with %d: %s", resp.StatusCode, respBytes)
		return nil, err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal chat response: %w", ErrAnalyzeFailed, err)
	}
	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return ParseMacroData(chatResp.Choices[0].Message.Content)
}

// ParseMacroData parses the model answer, tolerating markdown code fences.
func ParseMacroData(content string) (*macros.MacroData, error) {
	cleaned := strings.TrimSpace(codeFenceRegex.ReplaceAllString(content, ""))

	var data macros.MacroData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		log.Errorf("failed to parse vision response: %s", content)
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponseFormat, err)
	}
	data.Description = strings.TrimSpace(data.Description)
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponseFormat, err)
	}

	return &data, nil
}

func statusError(statusCode int) error {
	switch {
	case statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode == http.StatusBadRequest:
		return ErrBadRequest
	default:
		return fmt.Errorf("%w: status %d", ErrAnalyzeFailed, statusCode)
	}
}

func (c *Client) observe(start time.Time, ok bool) {
	if c.metricsManager == nil {
		return
	}
	labels := prometheus.Labels{"upstream": upstreamLabel}
	c.metricsManager.HistogramUpstreamDuration.With(labels).Observe(time.Since(start).Seconds())
	if !ok {
		c.metricsManager.CounterUpstreamFailures.With(labels).Inc()
	}
}
