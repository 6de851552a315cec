package llm

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider is the OpenAI provider pointed at OpenRouter. Model IDs
// carry the upstream vendor, e.g. "google/gemini-2.5-flash", and are sent
// as given.
type OpenRouterProvider struct {
	*OpenAIProvider
}

func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = defaultOpenRouterBaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Transport: &attributionTransport{base: http.DefaultTransport, title: cfg.AppName, referer: cfg.SiteURL},
	}
	return &OpenRouterProvider{OpenAIProvider: newOpenAIProvider(clientCfg, cfg.Model)}, nil
}

// attributionTransport sets the headers OpenRouter uses to attribute usage
// to an app.
type attributionTransport struct {
	base    http.RoundTripper
	title   string
	referer string
}

func (t *attributionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if t.title != "" {
		r.Header.Set("X-Title", t.title)
	}
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	return t.base.RoundTrip(r)
}
