// Package quotes fetches the latest bid rates from an AwesomeAPI-compatible
// endpoint (GET /json/last/USD-BRL,EUR-BRL).
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Ratewatch/internal/domain/quote"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ quote.Source = (*Client)(nil)

var ErrUpstream = errors.New("quote upstream")

type Config struct {
	BaseURL       string `mapstructure:"base_url"`
	QuoteCurrency string `mapstructure:"quote_currency"`
}

type Client struct {
	http  *http.Client
	base  string
	quote string
	log   *zap.Logger
}

func NewClient(cfg Config, hc *http.Client, log *zap.Logger) *Client {
	q := strings.ToUpper(cfg.QuoteCurrency)
	if q == "" {
		q = "BRL"
	}
	return &Client{
		http:  hc,
		base:  strings.TrimRight(cfg.BaseURL, "/"),
		quote: q,
		log:   log.With(zap.String("component", "quotes.client")),
	}
}

type pairDTO struct {
	Code       string `json:"code"`
	Codein     string `json:"codein"`
	Bid        string `json:"bid"`
	Timestamp  string `json:"timestamp"`
	CreateDate string `json:"create_date"`
}

// errUnknownPair is the upstream's 404: at least one requested pair does not exist.
var errUnknownPair = errors.New("unknown currency pair")

// Fetch returns one snapshot per code present in the upstream answer.
// Codes the upstream does not know are simply absent from the result. The
// upstream rejects a whole batch when one pair is unknown, so a 404 is retried
// code by code and only the unknown codes are dropped.
func (c *Client) Fetch(ctx context.Context, codes []string) (map[string]quote.Snapshot, error) {
	codes = normalize(codes)
	if len(codes) == 0 {
		return map[string]quote.Snapshot{}, nil
	}

	out, err := c.fetch(ctx, codes)
	if !errors.Is(err, errUnknownPair) {
		return out, err
	}
	if len(codes) == 1 {
		c.log.Warn("unknown currency pair", zap.String("code", codes[0]))
		return map[string]quote.Snapshot{}, nil
	}

	c.log.Warn("batch rejected by upstream, fetching codes one by one", zap.Strings("codes", codes))
	out = make(map[string]quote.Snapshot, len(codes))
	for _, code := range codes {
		one, err := c.fetch(ctx, []string{code})
		if errors.Is(err, errUnknownPair) {
			c.log.Warn("unknown currency pair", zap.String("code", code))
			continue
		}
		if err != nil {
			return nil, err
		}
		maps.Copy(out, one)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, codes []string) (map[string]quote.Snapshot, error) {
	pairs := make([]string, 0, len(codes))
	for _, code := range codes {
		pairs = append(pairs, code+"-"+c.quote)
	}
	url := c.base + "/json/last/" + strings.Join(pairs, ",")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errUnknownPair
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]pairDTO
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	out := make(map[string]quote.Snapshot, len(codes))
	for _, code := range codes {
		p, ok := payload[code+c.quote]
		if !ok {
			c.log.Debug("no quote in response", zap.String("code", code))
			continue
		}
		bid, err := decimal.NewFromString(p.Bid)
		if err != nil {
			return nil, fmt.Errorf("%w: bid %q for %s: %v", ErrUpstream, p.Bid, code, err)
		}
		out[code] = quote.Snapshot{
			CurrencyCode: code,
			Bid:          bid,
			Timestamp:    parseTimestamp(p.Timestamp),
		}
	}
	return out, nil
}

func normalize(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func parseTimestamp(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
