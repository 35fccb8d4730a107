package gpt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"agrimind/api/internal/llm"
)

const defaultModel = openai.GPT4oMini

type Engine struct {
	APIKey  string
	model   string
	BaseURL string
	httpc   *http.Client
	client  *openai.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	e := &Engine{
		APIKey: strings.TrimSpace(key),
		model:  strings.TrimSpace(model),
		// the caller's context carries the deadline
		httpc: &http.Client{Timeout: 0, Transport: tr},
	}
	e.client = e.newClient()
	return e
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
		e.client = e.newClient()
	}
	return e
}

// WithBaseURL points the engine at an OpenAI-compatible endpoint.
func (e *Engine) WithBaseURL(u string) *Engine {
	if u = strings.TrimSpace(u); u != "" {
		e.BaseURL = strings.TrimRight(u, "/")
		e.client = e.newClient()
	}
	return e
}

func (e *Engine) newClient() *openai.Client {
	cfg := openai.DefaultConfig(e.APIKey)
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	cfg.HTTPClient = e.httpc
	return openai.NewClientWithConfig(cfg)
}

func (e *Engine) Name() string  { return "gpt" }
func (e *Engine) Model() string { return e.model }

func (e *Engine) Generate(ctx context.Context, in llm.Request) ([]byte, error) {
	if e.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is empty")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, errors.New("openai: empty prompt")
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: in.Prompt},
		},
		// go-openai drops a literal 0 (omitempty)
		Temperature: math.SmallestNonzeroFloat32,
		N:           1,
	}
	if in.Schema != nil {
		def := toDefinition(in.Schema)
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName(in.Name),
				Schema: &def,
				Strict: true,
			},
		}
	} else {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", in.Name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai %s: empty response", in.Name)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		if r := resp.Choices[0].Message.Refusal; r != "" {
			return nil, fmt.Errorf("openai %s: refused: %s", in.Name, r)
		}
		return nil, fmt.Errorf("openai %s: empty content (finish_reason=%s)", in.Name, resp.Choices[0].FinishReason)
	}
	return []byte(out), nil
}

// toDefinition converts the neutral schema into go-openai's form. Strict
// mode needs every property required and no additional properties.
// The caller's schema is left untouched.
func toDefinition(s *llm.Schema) jsonschema.Definition {
	return definition(s.Clone().Strict())
}

func definition(s *llm.Schema) jsonschema.Definition {
	d := jsonschema.Definition{
		Type:        jsonschema.DataType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
	}
	if s.Type == llm.TypeObject {
		d.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for k, p := range s.Properties {
			d.Properties[k] = definition(p)
		}
		d.Required = append([]string(nil), s.Required...)
		d.AdditionalProperties = false
	}
	if s.Items != nil {
		it := definition(s.Items)
		d.Items = &it
	}
	return d
}

// schemaName keeps to the response_format name alphabet [a-zA-Z0-9_-].
func schemaName(n string) string {
	var b strings.Builder
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "response"
	}
	return b.String()
}
