package shfe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/external/gate"
	"github.com/wonny/futures/backend/pkg/httputil"
	"github.com/wonny/futures/backend/pkg/logger"
)

// Client fetches the SHFE daily bulletin
// ⭐ SSOT: 상해선물거래소 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	gate       *gate.Gate
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new SHFE client
func NewClient(httpClient *httputil.Client, g *gate.Gate, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		gate:       g,
		logger:     log.WithExchange(string(contracts.SHFE)),
		baseURL:    baseURL,
	}
}

// Exchange implements contracts.Source
func (c *Client) Exchange() contracts.Exchange {
	return contracts.SHFE
}

// Fetch downloads and parses the bulletin for day
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]contracts.RawRecord, error) {
	day = contracts.Day(day)
	url := fmt.Sprintf("%s/data/dailydata/kx/kx%s.dat", c.baseURL, day.Format("20060102"))

	var body []byte
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.httpClient.Get(ctx, url)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, contracts.Unavailable(contracts.SHFE, day, err)
	}

	records, err := parseBulletin(body)
	if err != nil {
		return nil, contracts.Unavailable(contracts.SHFE, day, err)
	}

	c.logger.WithDay(day).WithField("count", len(records)).Debug("Fetched bulletin")
	return records, nil
}
