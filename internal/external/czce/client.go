package czce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/internal/external/gate"
	"github.com/wonny/futures/backend/pkg/httputil"
	"github.com/wonny/futures/backend/pkg/logger"
)

// errNoBulletin means a location answered without a usable document
var errNoBulletin = errors.New("no bulletin at location")

// Client fetches the CZCE daily text bulletin
// ⭐ SSOT: 정주상품거래소 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	gate       *gate.Gate
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new CZCE client
func NewClient(httpClient *httputil.Client, g *gate.Gate, log *logger.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		gate:       g,
		logger:     log.WithExchange(string(contracts.CZCE)),
		baseURL:    baseURL,
	}
}

// Exchange implements contracts.Source
func (c *Client) Exchange() contracts.Exchange {
	return contracts.CZCE
}

// PrimaryURL is the current bulletin location for day
func (c *Client) PrimaryURL(day time.Time) string {
	return fmt.Sprintf("%s/portal/DFSStaticFiles/Future/%d/%s/FutureDataDaily.txt",
		c.baseURL, day.Year(), day.Format("20060102"))
}

// SecondaryURL is the legacy location used for older days
func (c *Client) SecondaryURL(day time.Time) string {
	return fmt.Sprintf("%s/portal/exchange/%d/datadaily/%s.txt",
		c.baseURL, day.Year(), day.Format("20060102"))
}

// Fetch tries the primary location, then the secondary one
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]contracts.RawRecord, error) {
	day = contracts.Day(day)

	body, err := c.download(ctx, c.PrimaryURL(day))
	if errors.Is(err, errNoBulletin) {
		c.logger.WithDay(day).WithError(err).Debug("Primary bulletin unavailable, trying secondary")
		body, err = c.download(ctx, c.SecondaryURL(day))
	}
	if err != nil {
		return nil, contracts.Unavailable(contracts.CZCE, day, err)
	}

	records, err := parseBulletin(body)
	if err != nil {
		return nil, contracts.Unavailable(contracts.CZCE, day, err)
	}

	c.logger.WithDay(day).WithField("count", len(records)).Debug("Fetched bulletin")
	return records, nil
}

// download returns the raw body, or errNoBulletin on a non-200 or empty response
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		resp, err := c.httpClient.Get(ctx, url)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status code %d", errNoBulletin, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if len(body) == 0 {
			return fmt.Errorf("%w: empty body", errNoBulletin)
		}
		return nil
	})
	return body, err
}
