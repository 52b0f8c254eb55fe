// Package provider builds the Anthropic client used by the runner.
package provider

import (
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// Options configures the client. Empty fields fall back to SDK defaults,
// which read ANTHROPIC_API_KEY and ANTHROPIC_BASE_URL from the environment.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewAnthropicClient returns a client for opts.
func NewAnthropicClient(opts Options) *anthropic.Client {
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	c := anthropic.NewClient(reqOpts...)
	return &c
}
