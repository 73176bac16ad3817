package advisorysvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trezcool/dailies/core"
)

const (
	completionsPath = "/chat/completions"
	maxBodySize     = 1 << 20

	systemPrompt = `You help teachers follow the daily status reports of their students.
Answer the question using only the dailies below. Be concise.`
)

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}
)

type openAIService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

var _ core.AdvisoryService = (*openAIService)(nil)

// NewOpenAIService talks to any OpenAI-compatible chat completions API.
func NewOpenAIService(conf core.AdvisoryConfig, client *http.Client) *openAIService {
	if client == nil {
		client = &http.Client{Timeout: conf.Timeout}
	}
	return &openAIService{
		client:  client,
		baseURL: strings.TrimSuffix(conf.BaseURL, "/"),
		apiKey:  conf.APIKey,
		model:   conf.Model,
	}
}

func (svc *openAIService) Ask(ctx context.Context, question, corpus string, participants []string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: svc.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt(question, corpus, participants)},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	if svc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+svc.apiKey)
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return "", core.NewAdvisoryError(0, errors.Wrap(err, "sending completion request"))
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return "", core.NewAdvisoryError(res.StatusCode, errors.Wrap(err, "reading completion response"))
	}
	if res.StatusCode >= http.StatusBadRequest {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return "", core.NewAdvisoryError(res.StatusCode, errors.New(msg))
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", core.NewAdvisoryError(res.StatusCode, errors.New("no completion in response"))
	}
	return content.String(), nil
}

func prompt(question, corpus string, participants []string) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "Participants (%d): %s\n\n", len(participants), strings.Join(participants, ", "))
	fmt.Fprintf(b, "Dailies:\n%s\n", corpus)
	fmt.Fprintf(b, "Question: %s", question)
	return b.String()
}
