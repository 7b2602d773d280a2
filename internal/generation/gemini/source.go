package gemini

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/genai"

	"github.com/florianilch/claudine-gateway/internal/generation"
)

// Backend selects the Google API serving the models.
type Backend string

const (
	// BackendGeminiAPI is the Gemini Developer API, authenticated with an API key.
	BackendGeminiAPI Backend = "gemini_api"
	// BackendVertexAI is Vertex AI, authenticated with Application Default Credentials.
	BackendVertexAI Backend = "vertex_ai"
)

// Config configures a Source.
type Config struct {
	Backend Backend

	// Project and Location are required for BackendVertexAI.
	Project  string
	Location string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey supplies the API key for BackendGeminiAPI. It is consulted on
	// every request so that a rotated key is picked up without a restart.
	APIKey oauth2.TokenSource

	// HTTPClient is used for all upstream calls. Nil uses the genai default.
	HTTPClient *http.Client
}

// Source generates responses with Gemini models through the Google Gen AI SDK.
type Source struct {
	cfg    Config
	client *genai.Client // shared client for BackendVertexAI

	mu        sync.Mutex
	keyClient *genai.Client // client for apiKey in BackendGeminiAPI
	apiKey    string
}

// Compile-time check to ensure Source implements generation.Source
var _ generation.Source = (*Source)(nil)

// New creates a Source. For BackendVertexAI the client is created eagerly so
// credential problems surface at startup.
func New(ctx context.Context, cfg Config) (*Source, error) {
	s := &Source{cfg: cfg}

	switch cfg.Backend {
	case BackendGeminiAPI, "":
		if cfg.APIKey == nil {
			return nil, fmt.Errorf("gemini api backend requires an api key source")
		}
		s.cfg.Backend = BackendGeminiAPI
	case BackendVertexAI:
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("vertex ai backend requires project and location")
		}
		client, err := genai.NewClient(ctx, s.clientConfig(""))
		if err != nil {
			return nil, fmt.Errorf("create vertex ai client: %w", err)
		}
		s.client = client
	default:
		return nil, fmt.Errorf("unsupported gemini backend %q", cfg.Backend)
	}

	return s, nil
}

func (s *Source) clientConfig(apiKey string) *genai.ClientConfig {
	cc := &genai.ClientConfig{
		HTTPClient: s.cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: s.cfg.BaseURL,
		},
	}
	if s.cfg.Backend == BackendVertexAI {
		cc.Backend = genai.BackendVertexAI
		cc.Project = s.cfg.Project
		cc.Location = s.cfg.Location
	} else {
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = apiKey
	}
	return cc
}

// clientFor returns the client for one request. API key clients are reused
// until the key changes.
func (s *Source) clientFor(ctx context.Context) (*genai.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	token, err := s.cfg.APIKey.Token()
	if err != nil {
		return nil, fmt.Errorf("retrieve api key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyClient != nil && s.apiKey == token.AccessToken {
		return s.keyClient, nil
	}
	client, err := genai.NewClient(ctx, s.clientConfig(token.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	s.keyClient, s.apiKey = client, token.AccessToken
	return client, nil
}

// Stream implements generation.Source.
func (s *Source) Stream(ctx context.Context, req *generation.Request) iter.Seq[generation.Event] {
	return func(yield func(generation.Event) bool) {
		client, err := s.clientFor(ctx)
		if err != nil {
			yield(generation.StreamError{Err: err})
			return
		}

		contents, config := toGenerateContent(req)
		responses := client.Models.GenerateContentStream(ctx, req.Params.Model, contents, config)
		translateResponses(ctx, responses, yield)
	}
}
