package gpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimind/api/internal/llm"
)

func testSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"reason": {Type: llm.TypeString, Description: "why"},
			"ok":     {Type: llm.TypeBoolean},
		},
	}
}

func chatServer(t *testing.T, content string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_StructuredRequest(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, " {\"ok\":true,\"reason\":\"r\"} ", &body)

	e := New("sk-test", "").WithBaseURL(srv.URL + "/v1/")
	out, err := e.Generate(context.Background(), llm.Request{Name: "irrigation", Prompt: "hello", Schema: testSchema()})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true,"reason":"r"}`, string(out))

	assert.Equal(t, "gpt-4o-mini", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hello", msgs[0].(map[string]any)["content"])

	rf := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "irrigation", js["name"])
	assert.Equal(t, true, js["strict"])
	schema := js["schema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"ok", "reason"}, schema["required"])
}

func TestGenerate_NoSchemaUsesJSONObject(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, `{}`, &body)

	_, err := New("sk-test", "gpt-4o").WithBaseURL(srv.URL+"/v1").Generate(context.Background(), llm.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, "json_object", body["response_format"].(map[string]any)["type"])
}

func TestGenerate_EmptyContent(t *testing.T) {
	srv := chatServer(t, "", nil)
	_, err := New("sk-test", "").WithBaseURL(srv.URL+"/v1").Generate(context.Background(), llm.Request{Name: "fertilizer", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	_, err := New("sk-test", "").WithBaseURL(srv.URL+"/v1").Generate(context.Background(), llm.Request{Name: "fertilizer", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestGenerate_Preconditions(t *testing.T) {
	_, err := New("", "").Generate(context.Background(), llm.Request{Prompt: "x"})
	assert.EqualError(t, err, "OPENAI_API_KEY is empty")

	_, err = New("sk", "").Generate(context.Background(), llm.Request{Prompt: "  "})
	assert.Error(t, err)
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "fertilizer", schemaName("fertilizer"))
	assert.Equal(t, "a_b-c", schemaName("a.b-c"))
	assert.Equal(t, "response", schemaName(""))
}

func TestToDefinition_SharedSchema(t *testing.T) {
	shared := testSchema()

	done := make(chan jsonschema.Definition, 4)
	for i := 0; i < 4; i++ {
		go func() { done <- toDefinition(shared) }()
	}
	for i := 0; i < 4; i++ {
		d := <-done
		assert.Len(t, d.Required, len(shared.Properties))
		assert.Equal(t, false, d.AdditionalProperties)
	}
	assert.Nil(t, shared.Required, "shared schema is not modified")
}
