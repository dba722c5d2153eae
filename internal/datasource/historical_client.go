package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-backtest/internal/logger"
	"github.com/yourusername/signal-backtest/internal/models"
)

// klineResponse is one bar as served by the historical bars API. Prices are decimal
// strings to avoid float rounding on the wire.
type klineResponse struct {
	OpenTime int64           `json:"openTime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// DefaultPageLimit is the number of bars requested per page. Kline APIs cap a response
// at around this size, so longer ranges are fetched page by page.
const DefaultPageLimit = 1000

// HistoricalClient fetches bars from a REST historical bars API
type HistoricalClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	pageLimit  int
	logger     *logrus.Entry
}

// NewHistoricalClient creates a new historical bars client
func NewHistoricalClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, log *logrus.Logger) *HistoricalClient {
	return &HistoricalClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		pageLimit:  DefaultPageLimit,
		logger:     logger.OrDefault(log).WithField("component", "market_data"),
	}
}

// WithPageLimit sets the bars requested per page; non-positive values keep the default
func (c *HistoricalClient) WithPageLimit(limit int) *HistoricalClient {
	if limit > 0 {
		c.pageLimit = limit
	}
	return c
}

// Name returns the name of the data source
func (c *HistoricalClient) Name() string {
	return "historical"
}

// FetchBars requests GET {base}/klines?symbol=&interval=&startTime=&endTime=&limit= with
// times in unix milliseconds. A full page moves startTime past its last bar and asks again
// until a short page arrives or the range end is reached.
func (c *HistoricalClient) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	step, err := models.ParseTimeframe(timeframe)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "unsupported timeframe "+timeframe, ErrInvalidData)
	}

	var bars []models.Bar
	cursor := start
	for page := 1; ; page++ {
		batch, err := c.fetchPage(ctx, symbol, timeframe, cursor, end)
		if err != nil {
			// a later page past the last available bar is the end of the data
			if page > 1 && errors.Is(err, ErrNoMarketData) {
				break
			}
			return nil, err
		}

		for _, bar := range batch {
			if len(bars) == 0 || bar.Time.After(bars[len(bars)-1].Time) {
				bars = append(bars, bar)
			}
		}
		if len(batch) < c.pageLimit {
			break
		}
		next := batch[len(batch)-1].Time.Add(step)
		if !next.After(cursor) || (!end.IsZero() && next.After(end)) {
			break
		}
		cursor = next

		c.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"page":   page + 1,
			"from":   cursor,
		}).Debug("Fetching next page of historical bars")
	}
	return clip(bars, start, end), nil
}

// fetchPage requests one page of bars starting at from, sorted by time
func (c *HistoricalClient) fetchPage(ctx context.Context, symbol, timeframe string, from, end time.Time) ([]models.Bar, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", timeframe)
	query.Set("startTime", strconv.FormatInt(from.UnixMilli(), 10))
	query.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	query.Set("limit", strconv.Itoa(c.pageLimit))
	endpoint := fmt.Sprintf("%s/klines?%s", c.baseURL, query.Encode())

	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["X-API-KEY"] = c.apiKey
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"timeframe": timeframe,
	}).Debug("Fetching historical bars")

	resp, err := c.httpClient.Get(ctx, endpoint, headers)
	if err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeNetworkError, "request failed", fmt.Errorf("%w: %v", ErrNetworkError, err))
	}
	defer drain(resp.Body)

	if err := c.checkStatus(resp, symbol); err != nil {
		return nil, err
	}

	var payload []klineResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewDataSourceError(c.Name(), ErrCodeInvalidData, "decode klines", fmt.Errorf("%w: %v", ErrInvalidData, err))
	}

	bars := make([]models.Bar, 0, len(payload))
	for _, k := range payload {
		bars = append(bars, models.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   k.Open.InexactFloat64(),
			High:   k.High.InexactFloat64(),
			Low:    k.Low.InexactFloat64(),
			Close:  k.Close.InexactFloat64(),
			Volume: k.Volume.InexactFloat64(),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

func (c *HistoricalClient) checkStatus(resp *http.Response, symbol string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(c.Name(), ErrCodeNotFound, "no bars for "+symbol, ErrNoMarketData)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(c.Name(), ErrCodeRateLimitExceeded, "rate limited", ErrRateLimitExceeded)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(c.Name(), ErrCodeAuthenticationFailed, "check market data API key", ErrAuthenticationFailed)
	case resp.StatusCode >= 500:
		return NewDataSourceError(c.Name(), ErrCodeServerError, resp.Status, ErrServerError)
	default:
		return NewDataSourceError(c.Name(), ErrCodeUnknown, "unexpected status "+resp.Status, nil)
	}
}
