package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func directDeps(baseURL string) *Deps {
	return &Deps{
		HTTPClient: http.DefaultClient,
		Logger:     testLogger(),
		BaseURLs:   map[string]string{"ebay": baseURL},
	}
}

func ebayJob() *domain.Job {
	return &domain.Job{
		ID:          "job-1",
		Marketplace: "ebay",
		ActionCode:  "update_price",
		TargetID:    "listing-42",
		SessionKey:  "ebay:user-1",
	}
}

func TestExecuteDirect_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantOK        bool
		wantRetryable bool
	}{
		{
			name:   "200 succeeds",
			status: http.StatusOK,
			body:   `{"price":"9.99"}`,
			wantOK: true,
		},
		{
			name:   "201 succeeds",
			status: http.StatusCreated,
			wantOK: true,
		},
		{
			name:          "429 is retryable",
			status:        http.StatusTooManyRequests,
			wantRetryable: true,
		},
		{
			name:          "503 is retryable",
			status:        http.StatusServiceUnavailable,
			body:          "upstream down",
			wantRetryable: true,
		},
		{
			name:          "422 is a validation failure, not retryable",
			status:        http.StatusUnprocessableEntity,
			body:          "invalid price",
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/listings/listing-42/price", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			outcome := executeDirect(context.Background(), directDeps(srv.URL), ebayJob(),
				"/listings/listing-42/price", map[string]string{"listing_id": "listing-42"})

			assert.Equal(t, tt.wantOK, outcome.OK)
			if tt.wantOK {
				assert.Equal(t, tt.body, string(outcome.Data))
			} else {
				assert.Equal(t, domain.FailureHandlerError, outcome.Kind)
				assert.Equal(t, tt.wantRetryable, outcome.Retryable)
			}
		})
	}
}

func TestExecuteDirect_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from now on

	outcome := executeDirect(context.Background(), directDeps(srv.URL), ebayJob(),
		"/listings/listing-42/price", nil)

	require.False(t, outcome.OK)
	assert.Equal(t, domain.FailureHandlerError, outcome.Kind)
	assert.True(t, outcome.Retryable)
}

func TestExecuteDirect_UnconfiguredMarketplace(t *testing.T) {
	deps := &Deps{HTTPClient: http.DefaultClient, Logger: testLogger(), BaseURLs: map[string]string{}}

	outcome := executeDirect(context.Background(), deps, ebayJob(), "/listings/listing-42/price", nil)

	require.False(t, outcome.OK)
	assert.Equal(t, domain.FailureHandlerError, outcome.Kind)
	assert.False(t, outcome.Retryable)
	assert.Contains(t, outcome.Message, "no API base URL")
}

func TestUpdatePriceAndSyncInventoryPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deps := directDeps(srv.URL)
	job := ebayJob()

	assert.True(t, NewUpdatePrice(deps).Execute(context.Background(), job).OK)
	assert.True(t, NewSyncInventory(deps).Execute(context.Background(), job).OK)

	assert.Equal(t, []string{
		"/listings/listing-42/price",
		"/listings/listing-42/inventory",
	}, paths)
}
