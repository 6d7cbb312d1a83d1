// Package httpclient builds the retrying HTTP client shared by the outbound
// adapters (email, game API, automation runtime, webhooks).
package httpclient

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/felixgeelhaar/wavekeeper/internal/log"
)

// Options tunes the client.
type Options struct {
	// Timeout bounds a single attempt.
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	RetryMax     int           `mapstructure:"retry_max" yaml:"retry_max" json:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min" yaml:"retry_wait_min" json:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max" yaml:"retry_wait_max" json:"retry_wait_max"`
}

// DefaultOptions retries twice with up to five seconds between attempts.
func DefaultOptions() Options {
	return Options{
		Timeout:      15 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// New returns a retrying client that logs through logger. A nil logger
// silences the client.
func New(opts Options, logger *log.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}
	if opts.RetryMax >= 0 {
		c.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		c.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		c.RetryWaitMax = opts.RetryWaitMax
	}
	if logger == nil {
		logger = log.Discard()
	}
	c.Logger = logger.WithComponent("http")
	// Return the last response instead of a bare "giving up" error so callers
	// can report the status code.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}
