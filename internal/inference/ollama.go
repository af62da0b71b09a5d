package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultModel     = "gpt-oss:20b"
)

// OllamaClient is a Capability backed by a local Ollama server.
type OllamaClient struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

// NewOllamaClient returns a client for baseURL. Timeouts come from the
// engine's per-attempt context, not the http.Client.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OllamaClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		HTTP:    &http.Client{},
	}
}

// Complete sends one non-streaming /api/generate call.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (Reply, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return Reply{}, err
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return Reply{}, fmt.Errorf("ollama url %q: %w", c.BaseURL, err)
	}

	stream := false
	gen := &api.GenerateRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}

	var text strings.Builder
	err = api.NewClient(base, c.HTTP).Generate(ctx, gen, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var status api.StatusError
		if errors.As(err, &status) {
			return Reply{}, &TransportError{Status: status.StatusCode, Err: err}
		}
		return Reply{}, &TransportError{Err: err}
	}

	return ParseReplyText(text.String())
}

// ParseReplyText extracts the JSON object between the first '{' and the
// last '}' of a model's free-text answer.
func ParseReplyText(text string) (Reply, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Reply{}, &MalformedReplyError{Reason: "no JSON object in reply"}
	}

	var reply Reply
	if err := json.Unmarshal([]byte(text[start:end+1]), &reply); err != nil {
		return Reply{}, &MalformedReplyError{Reason: "reply JSON: " + err.Error()}
	}
	if reply.Columns == nil {
		return Reply{}, &MalformedReplyError{Reason: `reply has no "columns" array`}
	}
	return reply, nil
}
