package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/repositories"
	"tryon-storefront/internal/domain/valueobjects"
	"tryon-storefront/model"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5003"

	analyzePath = "/api/analyze-user-image"
	swapPath    = "/api/swap-head"

	// output images come back inline as data URIs
	maxResponseBytes = 64 << 20
)

// HeadSwapAPIClient talks to the analysis and head-swap endpoints. It
// implements both repositories.AnalysisService and
// repositories.SwapService.
type HeadSwapAPIClient struct {
	baseURL  string
	pool     repositories.HTTPClientPool
	sanitize *bluemonday.Policy
	logger   *zap.Logger
}

func NewHeadSwapAPIClient(baseURL string, pool repositories.HTTPClientPool, logger *zap.Logger) *HeadSwapAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadSwapAPIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pool:     pool,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger.Named("headswap"),
	}
}

func (c *HeadSwapAPIClient) BaseURL() string {
	return c.baseURL
}

func (c *HeadSwapAPIClient) Analyze(ctx context.Context, image *valueobjects.UploadedImage) (*entities.AnalysisMetadata, error) {
	body, status, err := c.post(ctx, analyzePath, image, nil)
	if err != nil {
		return nil, &entities.AnalysisError{Kind: entities.FailureNetwork, Message: "Failed to reach the analysis service", Err: err}
	}
	if status != http.StatusOK {
		return nil, &entities.AnalysisError{Kind: entities.FailureStatus, StatusCode: status, Message: c.errorMessage(status, body)}
	}

	var resp model.AnalyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &entities.AnalysisError{Kind: entities.FailureMalformed, Message: "Analysis response is not valid JSON", Err: err}
	}
	if resp.Metadata == nil {
		msg := "Analysis response has no metadata"
		if resp.Error != "" {
			msg = c.clean(resp.Error)
		}
		return nil, &entities.AnalysisError{Kind: entities.FailureMalformed, Message: msg}
	}

	metadata, err := entities.NewAnalysisMetadata(resp.Metadata.BodyType, resp.Metadata.SkinColor, resp.Metadata.Gender)
	if err != nil {
		return nil, &entities.AnalysisError{Kind: entities.FailureMalformed, Message: "Analysis returned an unsupported body type or skin color", Err: err}
	}

	c.logger.Debug("analysis result",
		zap.String("body_type", resp.Metadata.BodyType),
		zap.String("skin_color", resp.Metadata.SkinColor),
	)
	return metadata, nil
}

func (c *HeadSwapAPIClient) Swap(ctx context.Context, image *valueobjects.UploadedImage, key valueobjects.ReferenceImageKey) (*entities.SwapOutcome, error) {
	fields := map[string]string{"reference_image": key.Path()}
	body, status, err := c.post(ctx, swapPath, image, fields)
	if err != nil {
		return nil, &entities.SwapError{Kind: entities.FailureNetwork, Message: "Failed to reach the head swap service", Err: err}
	}
	if status != http.StatusOK {
		return nil, &entities.SwapError{Kind: entities.FailureStatus, StatusCode: status, Message: c.errorMessage(status, body)}
	}

	var resp model.SwapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &entities.SwapError{Kind: entities.FailureMalformed, Message: "Head swap response is not valid JSON", Err: err}
	}

	outcome, err := entities.NewSwapOutcome(resp.OutputImage, resp.PregeneratedImageURL, c.clean(resp.Warning))
	if err != nil {
		return nil, &entities.SwapError{Kind: entities.FailureMalformed, Message: "Head swap response has no output image", Err: err}
	}
	if outcome.HasWarning() {
		c.logger.Warn("head swap returned a warning", zap.String("warning", outcome.Warning()))
	}
	return outcome, nil
}

func (c *HeadSwapAPIClient) post(ctx context.Context, path string, image *valueobjects.UploadedImage, fields map[string]string) ([]byte, int, error) {
	payload, contentType, err := encodeMultipart(image, fields)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	client, err := c.pool.GetHTTPClient(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get HTTP client: %w", err)
	}

	c.logger.Debug("sending request",
		zap.String("url", req.URL.String()),
		zap.String("file_name", image.FileName()),
		zap.Int64("size_bytes", image.SizeBytes()),
	)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("received response", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return body, resp.StatusCode, nil
}

func encodeMultipart(image *valueobjects.UploadedImage, fields map[string]string) (*bytes.Buffer, string, error) {
	if image == nil {
		return nil, "", errors.New("image is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, image.FileName()))
	header.Set("Content-Type", image.MimeType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(image.Data()); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// errorMessage prefers the body's error field over the status text.
func (c *HeadSwapAPIClient) errorMessage(status int, body []byte) string {
	var resp model.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		if msg := c.clean(resp.Error); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", status)
}

// clean strips markup from text the remote service wants shown to users.
func (c *HeadSwapAPIClient) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.sanitize.Sanitize(s)))
}
