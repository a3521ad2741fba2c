package rates

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fanvault/reconciler/internal/adapter"
)

// Client provides the native-token spot rate used to express asset prices
// in USD. Rates are advisory; a failed lookup degrades pricing, it never
// fails a reconciliation.
type Client interface {
	// ETHUSD returns the current ETH/USD spot rate
	ETHUSD(ctx context.Context) (float64, error)
}

type client struct {
	url        string
	httpClient adapter.HTTPClient
}

// NewClient creates a spot-rate client against an exchange-rates endpoint
func NewClient(url string, httpClient adapter.HTTPClient) Client {
	return &client{url: url, httpClient: httpClient}
}

// exchangeRatesResponse mirrors the exchange-rates API envelope
type exchangeRatesResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

// ETHUSD returns the current ETH/USD spot rate
func (c *client) ETHUSD(ctx context.Context) (float64, error) {
	var response exchangeRatesResponse
	if err := c.httpClient.Get(ctx, c.url, &response); err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}

	usd, ok := response.Data.Rates["USD"]
	if !ok {
		return 0, fmt.Errorf("no USD rate in exchange-rates response")
	}

	rate, err := strconv.ParseFloat(usd, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid USD rate %q: %w", usd, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive USD rate: %f", rate)
	}

	return rate, nil
}
