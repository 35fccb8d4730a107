package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"agrimind/api/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

type Engine struct {
	APIKey string
	model  string
	opts   []option.ClientOption
}

func New(apiKey, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

// WithClientOptions appends extra client options (endpoint, HTTP client, ...).
func (e *Engine) WithClientOptions(opts ...option.ClientOption) *Engine {
	e.opts = append(e.opts, opts...)
	return e
}

func (e *Engine) Name() string  { return "gemini" }
func (e *Engine) Model() string { return e.model }

func (e *Engine) Generate(ctx context.Context, in llm.Request) ([]byte, error) {
	if e.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, errors.New("gemini: empty prompt")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	if m == nil {
		return nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		CandidateCount:   ptrInt32(1),
		ResponseMIMEType: "application/json",
	}
	if in.Schema != nil {
		m.GenerationConfig.ResponseSchema = toSchema(in.Schema)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(in.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", in.Name, err)
	}
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, fmt.Errorf("gemini %s: prompt blocked: %s", in.Name, resp.PromptFeedback.BlockReason)
	}
	txt := strings.TrimSpace(firstText(resp))
	if txt == "" {
		return nil, fmt.Errorf("gemini %s: empty response", in.Name)
	}
	return []byte(txt), nil
}

// toSchema converts the neutral schema into the Gemini response schema.
// Gemini has no additionalProperties; required lists every property.
// The caller's schema is left untouched.
func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	return convert(s.Clone().Strict())
}

func convert(s *llm.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    append([]string(nil), s.Required...),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, p := range s.Properties {
			out.Properties[k] = convert(p)
		}
	}
	if s.Items != nil {
		out.Items = convert(s.Items)
	}
	return out
}

func toType(t llm.Type) genai.Type {
	switch t {
	case llm.TypeObject:
		return genai.TypeObject
	case llm.TypeString:
		return genai.TypeString
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeBoolean:
		return genai.TypeBoolean
	case llm.TypeArray:
		return genai.TypeArray
	}
	return genai.TypeUnspecified
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
