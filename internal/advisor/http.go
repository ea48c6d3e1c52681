package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

const (
	// DefaultTimeout bounds a single advisory call
	DefaultTimeout = 20 * time.Second

	maxResponseBytes = 1 << 20
)

// DefaultRateLimit keeps automated drafts from flooding the advisory service
var DefaultRateLimit = rate.Every(250 * time.Millisecond)

// Options configures an HTTP advisor
type Options struct {
	Endpoint string

	// OAuth2 client credentials; the token is fetched only when TokenURL is set
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	Timeout    time.Duration
	RateLimit  rate.Limit
	HTTPClient *http.Client
}

// HTTPAdvisor posts the pick context as JSON and expects {"playerName","explanation"} back
type HTTPAdvisor struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

type response struct {
	PlayerName  string `json:"playerName"`
	Explanation string `json:"explanation"`
}

// NewHTTP creates an advisor for the configured endpoint
func NewHTTP(opts Options) *HTTPAdvisor {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		// the token source reuses httpClient for its own token requests
		base := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = cc.Client(base)
		httpClient.Timeout = opts.Timeout
	}

	return &HTTPAdvisor{
		endpoint:   opts.Endpoint,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(opts.RateLimit, 1),
		timeout:    opts.Timeout,
	}
}

// Advise asks the remote service for a pick
func (a *HTTPAdvisor) Advise(ctx context.Context, req Request) Outcome {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return classify(fmt.Errorf("rate limiter: %w", err))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return classify(fmt.Errorf("advisor request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classify(fmt.Errorf("read advisor response: %w", err))
	}
	logger.Debug("Advisor responded", "status", resp.StatusCode, "duration", time.Since(start), "purpose", req.Purpose)

	if resp.StatusCode != http.StatusOK {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("advisor returned status %d", resp.StatusCode)}
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return Outcome{Status: StatusInvalid, Err: fmt.Errorf("decode advisor response: %w", err)}
	}
	if out.PlayerName == "" {
		return Outcome{Status: StatusInvalid, Err: errors.New("advisor response has no playerName")}
	}

	return Outcome{PlayerName: out.PlayerName, Explanation: out.Explanation, Status: StatusOK}
}

func classify(err error) Outcome {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Outcome{Status: StatusTimeout, Err: err}
	}
	return Outcome{Status: StatusFailed, Err: err}
}
