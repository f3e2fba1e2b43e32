package dce

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/external/gate"
	"github.com/wonny/futures/backend/pkg/httputil"
	"github.com/wonny/futures/backend/pkg/logger"
)

// Client fetches the DCE daily quotation page
// ⭐ SSOT: 대련상품거래소 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	gate       *gate.Gate
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new DCE client
func NewClient(httpClient *httputil.Client, g *gate.Gate, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		gate:       g,
		logger:     log.WithExchange(string(contracts.DCE)),
		baseURL:    baseURL,
	}
}

// Exchange implements contracts.Source
func (c *Client) Exchange() contracts.Exchange {
	return contracts.DCE
}

// Fetch posts the quotation query for day and parses the returned table
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]contracts.RawRecord, error) {
	day = contracts.Day(day)
	form := url.Values{
		"action":                   {"Pu00011_result"},
		"Pu00011_Input.trade_date": {day.Format("20060102")},
		"Pu00011_Input.variety":    {"all"},
		"Pu00011_Input.trade_type": {"0"},
	}

	var body []byte
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.httpClient.PostForm(ctx, c.baseURL+"/PublicWeb/MainServlet", form)
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
		return nil, contracts.Unavailable(contracts.DCE, day, err)
	}

	records, unknown, err := parseQuotes(body)
	if err != nil {
		return nil, contracts.Unavailable(contracts.DCE, day, err)
	}
	for _, name := range unknown {
		c.logger.WithDay(day).WithField("variety", name).Warn("Unknown DCE variety, rows skipped")
	}

	c.logger.WithDay(day).WithField("count", len(records)).Debug("Fetched bulletin")
	return records, nil
}
