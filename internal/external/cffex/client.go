package cffex

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

// Client fetches the CFFEX daily XML bulletin and probes trading days
// ⭐ SSOT: 중국금융선물거래소 호출은 이 클라이언트에서만
type Client struct {
	httpClient  *httputil.Client
	probeClient *httputil.Client
	gate        *gate.Gate
	logger      *logger.Logger
	baseURL     string
}

// NewClient creates a new CFFEX client
func NewClient(httpClient *httputil.Client, g *gate.Gate, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient:  httpClient,
		probeClient: httpClient.WithoutRedirects(),
		gate:        g,
		logger:      log.WithExchange(string(contracts.CFFEX)),
		baseURL:     baseURL,
	}
}

// Exchange implements contracts.Source
func (c *Client) Exchange() contracts.Exchange {
	return contracts.CFFEX
}

// BulletinURL returns the XML location for day
func (c *Client) BulletinURL(day time.Time) string {
	return fmt.Sprintf("%s/fzjy/mrhq/%s/%s/index.xml", c.baseURL, day.Format("200601"), day.Format("02"))
}

// Fetch downloads and parses the bulletin for day
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]contracts.RawRecord, error) {
	day = contracts.Day(day)

	var body []byte
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.httpClient.Get(ctx, c.BulletinURL(day))
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
		return nil, contracts.Unavailable(contracts.CFFEX, day, err)
	}

	records, err := parseBulletin(body)
	if err != nil {
		return nil, contracts.Unavailable(contracts.CFFEX, day, err)
	}

	c.logger.WithDay(day).WithField("count", len(records)).Debug("Fetched bulletin")
	return records, nil
}

// IsTradingDay requests the bulletin without following redirects.
// CFFEX redirects to an error page on days without a session, so any 3xx
// answer means the exchanges were closed.
func (c *Client) IsTradingDay(ctx context.Context, day time.Time) (bool, error) {
	day = contracts.Day(day)

	var status int
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.probeClient.Get(ctx, c.BulletinURL(day))
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body) //nolint:errcheck

		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return false, contracts.Unavailable(contracts.CFFEX, day, err)
	}

	return status < 300 || status >= 400, nil
}
