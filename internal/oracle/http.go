package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/updown-rounds/pkg/types"
	"go.uber.org/zap"
)

// HTTPClient reads prices from a remote oracle REST endpoint:
//
//	GET {baseURL}/latest_price?asset=<asset key>
//	{"price":"10.25","last_updated_time":1700000000}
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates a remote price reader.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// LatestPrice implements PriceReader.
func (c *HTTPClient) LatestPrice(ctx context.Context, asset types.AssetInfo) (PriceInfo, error) {
	params := url.Values{}
	params.Add("asset", asset.Key())
	requestURL := fmt.Sprintf("%s/latest_price?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return PriceInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "updown-rounds/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		HTTPRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return PriceInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	HTTPRequestDuration.WithLabelValues(fmt.Sprint(resp.StatusCode)).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceInfo{}, fmt.Errorf("read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return PriceInfo{}, fmt.Errorf("%w: %s", ErrAssetNotRegistered, asset.Key())
	default:
		return PriceInfo{}, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var info PriceInfo
	err = json.Unmarshal(body, &info)
	if err != nil {
		return PriceInfo{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if info.LastUpdated == 0 {
		return PriceInfo{}, fmt.Errorf("%w: %s", ErrNoPrice, asset.Key())
	}

	c.logger.Debug("oracle-price-fetched",
		zap.String("asset", asset.Key()),
		zap.String("price", info.Price.String()),
		zap.Uint64("last-updated", info.LastUpdated))

	return info, nil
}
