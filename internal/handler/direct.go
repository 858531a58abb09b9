package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// executeDirect performs one bounded HTTP call against a marketplace API and
// classifies the response. 429 and 5xx are retryable (rate limits and server
// hiccups pass with time); other 4xx are validation-class and are not.
func executeDirect(ctx context.Context, deps *Deps, job *domain.Job, path string, payload any) domain.Outcome {
	baseURL, ok := deps.BaseURLs[job.Marketplace]
	if !ok {
		return domain.Failure(
			domain.FailureHandlerError,
			fmt.Sprintf("no API base URL configured for marketplace %s", job.Marketplace),
			false,
		)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Failure(domain.FailureHandlerError, "failed to marshal request: "+err.Error(), false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.Failure(domain.FailureHandlerError, "failed to build request: "+err.Error(), false)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := deps.HTTPClient.Do(req)
	if err != nil {
		// Network-level failures are transient until proven otherwise.
		return domain.Failure(domain.FailureHandlerError, "marketplace request failed: "+err.Error(), true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Failure(domain.FailureHandlerError, "failed to read response: "+err.Error(), true)
	}

	deps.Logger.Debug("Direct marketplace call completed",
		slog.String("job_id", job.ID),
		slog.String("marketplace", job.Marketplace),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return domain.Success(respBody)

	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Failure(
			domain.FailureHandlerError,
			fmt.Sprintf("marketplace rate limited request (%d)", resp.StatusCode),
			true,
		)

	case resp.StatusCode >= 500:
		return domain.Failure(
			domain.FailureHandlerError,
			fmt.Sprintf("marketplace server error (%d): %s", resp.StatusCode, truncate(respBody, 200)),
			true,
		)

	default:
		return domain.Failure(
			domain.FailureHandlerError,
			fmt.Sprintf("marketplace rejected request (%d): %s", resp.StatusCode, truncate(respBody, 200)),
			false,
		)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
