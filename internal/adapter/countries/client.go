package countries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
)

// Client implements domain.CountryNamer using the REST Countries API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a REST Countries client rooted at baseURL
// (e.g. https://restcountries.com/v3.1).
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// CountryName returns the common English name for an ISO 3166 alpha-3 code.
// An unknown code yields an empty name and no error.
func (c *Client) CountryName(ctx context.Context, code string) (string, error) {
	u := fmt.Sprintf("%s/alpha/%s?%s", c.baseURL, url.PathEscape(strings.ToLower(code)), url.Values{"fields": {"name"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.CountryLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CountryLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("country lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.metrics.CountryLookups.WithLabelValues("empty").Inc()
		c.logger.Debug("country code not found", "country", code)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.CountryLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("countries API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.CountryLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read response: %w", err)
	}
	name, err := decodeName(body)
	if err != nil {
		c.metrics.CountryLookups.WithLabelValues("error").Inc()
		return "", err
	}
	if name == "" {
		c.metrics.CountryLookups.WithLabelValues("empty").Inc()
		return "", nil
	}
	c.metrics.CountryLookups.WithLabelValues("success").Inc()
	return name, nil
}

// decodeName accepts both the single-object and the array form of the
// alpha endpoint's response.
func decodeName(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []country
		if err := json.Unmarshal(body, &list); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(list) == 0 {
			return "", nil
		}
		return list[0].Name.Common, nil
	}
	var one country
	if err := json.Unmarshal(body, &one); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return one.Name.Common, nil
}

// REST Countries API response types.

type country struct {
	Name countryName `json:"name"`
}

type countryName struct {
	Common   string `json:"common"`
	Official string `json:"official"`
}
