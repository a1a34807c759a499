package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultModelName   = "llama3.1-70b"
	embeddingModelName = "nvidia/nv-embedqa-e5-v5"

	completionTemperature = 0.1
	completionTopP        = 0.1
	completionMaxTokens   = 1024
)

var modelEndpoints = map[string]string{
	DefaultModelName: "meta/llama-3.1-70b-instruct",
	"llama3-70b":     "meta/llama3-70b-instruct",
}

// ModelEndpoint resolves a model name to its endpoint identifier. Unknown or
// empty names fall back to the default model rather than failing.
func ModelEndpoint(name string) string {
	if name == "" {
		return modelEndpoints[DefaultModelName]
	}
	endpoint, ok := modelEndpoints[name]
	if !ok {
		log.Printf("Warning: model %q not found in available models. Defaulting to %s", name, DefaultModelName)
		return modelEndpoints[DefaultModelName]
	}
	return endpoint
}

// CompletionResponse is the transient result of one completion exchange.
// Text holds the raw streamed body; ExtractContent turns it into the
// human-readable reply.
type CompletionResponse struct {
	TimeTaken time.Duration
	Text      string
}

// LLM is the completion/embedding surface the pipeline consumes.
type LLM interface {
	GenerateEmbedding(ctx context.Context, text string, query bool) ([]float32, error)
	CompleteChat(ctx context.Context, systemPrompt string, msg Message, model string) (*CompletionResponse, error)
	GenerateNaturalLanguage(ctx context.Context, code string) (string, error)
	ReviseSummary(ctx context.Context, oldSummary, userMsg, assistantMsg string) (string, error)
}

// LlamaService talks to the external embedding and completion endpoints over
// a shared, long-lived HTTP client opened at process start.
type LlamaService struct {
	client          *http.Client
	embeddingURL    string
	embeddingToken  string
	completionURL   string
	completionToken string
}

func NewLlamaService(client *http.Client, embeddingURL, embeddingToken, completionURL, completionToken string) *LlamaService {
	return &LlamaService{
		client:          client,
		embeddingURL:    embeddingURL,
		embeddingToken:  embeddingToken,
		completionURL:   completionURL,
		completionToken: completionToken,
	}
}

type embeddingRequest struct {
	Input          string `json:"input"`
	Model          string `json:"model"`
	InputType      string `json:"input_type"`
	EncodingFormat string `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream,omitempty"`
}

// completionResult is the non-streamed response shape.
type completionResult struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateEmbedding turns text into a fixed-length vector. The query flag
// distinguishes query encoding from passage encoding.
func (s *LlamaService) GenerateEmbedding(ctx context.Context, text string, query bool) ([]float32, error) {
	inputType := "passage"
	if query {
		inputType = "query"
	}

	payload := embeddingRequest{
		Input:          text,
		Model:          embeddingModelName,
		InputType:      inputType,
		EncodingFormat: "float",
	}

	resp, err := s.postJSON(ctx, s.embeddingURL, s.embeddingToken, payload)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Op: "embedding", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding data received from endpoint")
	}
	return parsed.Data[0].Embedding, nil
}

// CompleteChat sends [system, msg] to the completion endpoint as a streamed
// request and returns the raw streamed body. Adjacent same-role messages are
// collapsed before sending, so a system-role msg merges into the system
// prompt rather than forming a second system turn.
func (s *LlamaService) CompleteChat(ctx context.Context, systemPrompt string, msg Message, model string) (*CompletionResponse, error) {
	log.Println("Completing chat with an LLM...")

	messages := CollapseMessages([]Message{
		{Role: RoleSystem, Content: systemPrompt},
		msg,
	})

	payload := completionRequest{
		Model:       ModelEndpoint(model),
		Messages:    messages,
		Temperature: completionTemperature,
		TopP:        completionTopP,
		MaxTokens:   completionMaxTokens,
		Stream:      true,
	}

	start := time.Now()
	resp, err := s.postJSON(ctx, s.completionURL, s.completionToken, payload)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Op: "completion", Status: resp.StatusCode, Body: string(body)}
	}

	return &CompletionResponse{
		TimeTaken: time.Since(start),
		Text:      string(body),
	}, nil
}

const naturalLanguagePrompt = `You are a code analysis tool. Convert the following python code into a detailed natural language description that captures its logic, purpose, and flow.
Do not format it as markdown. Do not add any commentary or explanations outside the code logic itself.

Here is the code:
%s`

// GenerateNaturalLanguage converts submitted source code into a prose
// description, used instead of raw source in natural-language policy mode.
func (s *LlamaService) GenerateNaturalLanguage(ctx context.Context, code string) (string, error) {
	payload := completionRequest{
		Model:       ModelEndpoint(""),
		Messages:    []Message{{Role: RoleSystem, Content: fmt.Sprintf(naturalLanguagePrompt, code)}},
		Temperature: completionTemperature,
		TopP:        completionTopP,
		MaxTokens:   completionMaxTokens,
	}

	content, err := s.completeOnce(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("failed to generate natural language description: %w", err)
	}
	return strings.TrimSpace(content), nil
}

const summaryRevisionPrompt = `You must generate a summary of a conversation between a user and an AI assistant.
You will be given an outdated summary of the conversation, a new message from a user, and a new message from the assistant.
You will output the new summary of the conversation incorporating all three given components.
You must ONLY respond with the new summary, do not confirm your understanding of the task or anything like 'Here is the new summary:'.
You must respond with a reasonably concise summary that only distills the most important information from the previous summary and the new messages.
You must omit some details from the previous summary so that your summary does not get excessively long. Limit the response to about 1024 tokens or 4000 characters. Your new summary should not be much longer or much shorter than the old summary.

Here is an example of a good summarization.

Old summary:
"The user asks what a linked list is. The assistant answers that linked lists are a data structure that stores a linear sequence in non-contiguous memory, similar to a line of people where each person knows the people adjacent to themselves. The assistant mentions that Project 1 involves implementing a linked list. The assistant asks the user if they can think of a scenario where a linked list is more suitable than an array.

User message:
"When are they not useful?"

Assistant message:
"Linked lists are less suitable than comparable data structures, such as arrays, when the use case requires frequent accesses at random indices. Arrays allow for constant time random access, while linked lists require iteration through the list."

You should respond with something like the line below, without the quotation marks.
"The user asks what a linked list is. The assistant answers that linked lists store a linear sequence in non-contiguous memory, similar to a line of people where each person knows the people adjacent to themselves. The assistant mentions that Project 1 involves implementing a linked list. The assistant asks the user if they can think of a scenario where a linked list is more suitable than an array. The user then asks when linked lists are not suitable, and the assistant responds that linked lists are not suited when frequent random accesses by index are necessary because arrays will be faster in that case."

Now it's your turn, here is the summary and message data:

Old summary:
"%s"

User message:
"%s"

Assistant message
"%s"`

// ReviseSummary asks the model for a replacement conversation summary that
// folds the latest exchange into the old summary. The result replaces, never
// appends to, the stored content.
func (s *LlamaService) ReviseSummary(ctx context.Context, oldSummary, userMsg, assistantMsg string) (string, error) {
	prompt := fmt.Sprintf(summaryRevisionPrompt, oldSummary, userMsg, assistantMsg)

	payload := completionRequest{
		Model:       ModelEndpoint(""),
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: completionTemperature,
		TopP:        completionTopP,
		MaxTokens:   completionMaxTokens,
	}

	content, err := s.completeOnce(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("failed to generate new summary: %w", err)
	}
	return content, nil
}

// completeOnce issues a non-streamed completion and returns the message
// content of the first choice.
func (s *LlamaService) completeOnce(ctx context.Context, payload completionRequest) (string, error) {
	resp, err := s.postJSON(ctx, s.completionURL, s.completionToken, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &UpstreamError{Op: "completion", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed completionResult
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (s *LlamaService) postJSON(ctx context.Context, url, token string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.client.Do(req)
}

// streamChunk is the shape of one newline-delimited streamed line.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ExtractContent concatenates the delta content of every well-formed chunk in
// a raw streamed body. Lines may carry a "data: " prefix; malformed or
// structurally unexpected lines (keep-alives, control frames) are skipped.
func ExtractContent(raw string) string {
	var final strings.Builder

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		var chunk streamChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
			continue
		}
		final.WriteString(*chunk.Choices[0].Delta.Content)
	}

	return final.String()
}
