package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/fanforge/fanforge-go/internal/config"
	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
)

// APIClient handles all HTTP communication with the fanforge API
type APIClient struct {
	config     *config.Config
	httpClient *http.Client
}

// NewAPIClient creates a new API client with the given configuration
func NewAPIClient(cfg *config.Config) *APIClient {
	return &APIClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BuildURL constructs a full URL for the given endpoint
func (c *APIClient) BuildURL(endpoint string) string {
	return fmt.Sprintf("%s/api/1%s", c.config.BaseURL, endpoint)
}

// Get makes a GET request to the specified endpoint
func (c *APIClient) Get(ctx context.Context, endpoint string, result interface{}) error {
	return c.request(ctx, http.MethodGet, endpoint, nil, result)
}

// Post makes a POST request to the specified endpoint
func (c *APIClient) Post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPost, endpoint, body, result)
}

// request is the core HTTP request method
func (c *APIClient) request(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	url := c.BuildURL(endpoint)
	start := time.Now()
	logger.Debug("Starting %s request to %s", method, url)

	var requestBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request body: %w", err)
		}
		requestBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, requestBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	return c.do(req, url, start, result)
}

// PostMultipart makes a POST request with JSON fields and binary file parts
func (c *APIClient) PostMultipart(ctx context.Context, endpoint string, fields map[string]string, attachments []models.Attachment, result interface{}) error {
	url := c.BuildURL(endpoint)
	start := time.Now()
	logger.Debug("Starting multipart POST request to %s (%d attachments)", url, len(attachments))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("error writing form field %s: %w", key, err)
		}
	}

	for i, att := range attachments {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file%d"; filename=%q`, i, att.Filename))
		header.Set("Content-Type", att.MIME)

		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("error creating form part for %s: %w", att.Filename, err)
		}
		if _, err := part.Write(att.Data); err != nil {
			return fmt.Errorf("error writing attachment %s: %w", att.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("error finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	return c.do(req, url, start, result)
}

func (c *APIClient) setAuth(req *http.Request) {
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

// do executes the request and decodes the response envelope. The backend's
// insufficient-credit signal (HTTP 402 or envelope code) is surfaced as the
// ErrInsufficientCredit sentinel, every other non-2xx as a SubmissionError.
func (c *APIClient) do(req *http.Request, url string, start time.Time, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		logger.Error("Request failed after (%s) %v: %v", url, elapsed, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	logger.Debug("Request to %s completed in %v with status %d", url, elapsed, resp.StatusCode)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	var envelope models.APIResponse[json.RawMessage]
	// Tolerate non-JSON error bodies; envelope stays zero-valued.
	_ = json.Unmarshal(bodyBytes, &envelope)

	if resp.StatusCode == http.StatusPaymentRequired || envelope.Code == "insufficient_credit" {
		logger.Info("Backend reported insufficient credit for %s", url)
		return models.ErrInsufficientCredit
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := envelope.Message
		if message == "" {
			message = string(bodyBytes)
		}
		logger.Error("%s: HTTP error %d: %s", url, resp.StatusCode, message)
		return &models.SubmissionError{StatusCode: resp.StatusCode, Message: message}
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			logger.Error("%s: Error decoding response: %v", url, err)
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// Ping checks if the API is ready
func (c *APIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL("/ping"), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping failed with status %d", resp.StatusCode)
	}

	return nil
}

// WaitForAPIReady waits for the API to become ready
func (c *APIClient) WaitForAPIReady(ctx context.Context) bool {
	logger.Info("Checking API readiness...")

	for attempt := 1; attempt <= c.config.APIReadyTimeout; attempt++ {
		logger.Info("Checking API readiness (attempt %d/%d)...", attempt, c.config.APIReadyTimeout)

		if err := c.Ping(ctx); err == nil {
			logger.Info("API is ready!")
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}

	logger.Error("API failed to become ready after %d attempts", c.config.APIReadyTimeout)
	return false
}
