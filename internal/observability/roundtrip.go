package observability

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggingRoundTripper logs one line per HTTP round trip with method,
// url, status and duration. Status 5xx logs at error level, 4xx at
// warn.
type LoggingRoundTripper struct {
	logger zerolog.Logger
	next   http.RoundTripper
}

func NewLoggingRoundTripper(logger zerolog.Logger, next http.RoundTripper) *LoggingRoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingRoundTripper{logger: logger, next: next}
}

// NewHTTPClient is the stock client for smart HTTP remotes: default
// transport wrapped with round-trip logging.
func NewHTTPClient(logger zerolog.Logger) *http.Client {
	return &http.Client{Transport: NewLoggingRoundTripper(logger, nil)}
}

func (rt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		rt.logger.Error().
			Str("method", req.Method).
			Str("url", req.URL.Redacted()).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("http_round_trip")
		return nil, err
	}

	event := rt.logger.Info()
	if resp.StatusCode >= 500 {
		event = rt.logger.Error()
	} else if resp.StatusCode >= 400 {
		event = rt.logger.Warn()
	}
	event.
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("http_round_trip")
	return resp, nil
}
