package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountCodeLinesFencedBlock(t *testing.T) {
	text := strings.Join([]string{
		"Here is a short example.",
		"```",
		"x = 1",
		"y = 2",
		"z = x + y",
		"```",
		"That is all you need.",
	}, "\n")

	assert.Equal(t, 3, CountCodeLines(text))
}

func TestCountCodeLinesPrefixTokens(t *testing.T) {
	text := strings.Join([]string{
		"def solve():",
		"    return 42",
		"plain prose line",
		"import os",
		"# a comment",
	}, "\n")

	// "    return 42" strips to "return 42" and counts too.
	assert.Equal(t, 4, CountCodeLines(text))
}

func TestCountCodeLinesIdempotent(t *testing.T) {
	text := "```\ncode\n```\ndef f():"
	first := CountCodeLines(text)
	assert.Equal(t, first, CountCodeLines(text))
}

func TestCountCodeLinesMonotonic(t *testing.T) {
	text := "some prose"
	previous := CountCodeLines(text)
	for i := 0; i < 5; i++ {
		text += "\nimport os"
		current := CountCodeLines(text)
		assert.GreaterOrEqual(t, current, previous)
		previous = current
	}
	assert.Equal(t, 5, previous)
}

type fakeCompleter struct {
	calls     int
	prompts   []string
	messages  []Message
	responses []*CompletionResponse
	err       error
}

func (f *fakeCompleter) CompleteChat(ctx context.Context, systemPrompt string, msg Message, model string) (*CompletionResponse, error) {
	f.prompts = append(f.prompts, systemPrompt)
	f.messages = append(f.messages, msg)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return resp, nil
}

func violatingText() string {
	return strings.Repeat("import os\n", MaxCodeLines+1)
}

func TestEnforceAcceptsCleanResponse(t *testing.T) {
	completer := &fakeCompleter{}
	svc := NewPolicyService(completer)

	clean := &CompletionResponse{Text: "just prose, no code"}
	final, err := svc.Enforce(context.Background(), clean, "prompt", nil)

	require.NoError(t, err)
	assert.Same(t, clean, final)
	assert.Zero(t, completer.calls)
}

func TestEnforceReissuesUntilExhaustion(t *testing.T) {
	second := &CompletionResponse{Text: violatingText() + "still bad"}
	completer := &fakeCompleter{responses: []*CompletionResponse{
		{Text: violatingText()},
		second,
	}}
	svc := NewPolicyService(completer)

	hookCalls := 0
	onResponse := func(*CompletionResponse) error {
		hookCalls++
		return nil
	}

	first := &CompletionResponse{Text: violatingText()}
	final, err := svc.Enforce(context.Background(), first, "prompt", onResponse)

	require.NoError(t, err)
	// Two reissues, then the last response is returned unmodified.
	assert.Equal(t, MaxPolicyRetries, completer.calls)
	assert.Same(t, second, final)
	// The summary hook fires for every iteration's response.
	assert.Equal(t, MaxPolicyRetries+1, hookCalls)
}

func TestEnforceSingleReissueWhenCorrected(t *testing.T) {
	corrected := &CompletionResponse{Text: "short and clean"}
	completer := &fakeCompleter{responses: []*CompletionResponse{corrected}}
	svc := NewPolicyService(completer)

	first := &CompletionResponse{Text: violatingText()}
	final, err := svc.Enforce(context.Background(), first, "prompt", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
	assert.Same(t, corrected, final)

	// The corrective message is a system turn naming the offending count.
	require.Len(t, completer.messages, 1)
	assert.Equal(t, RoleSystem, completer.messages[0].Role)
	assert.Contains(t, completer.messages[0].Content, "too many lines of code (6)")
	assert.Contains(t, completer.messages[0].Content, "at most 5 lines")
}

func TestEnforceReusesOriginalPrompt(t *testing.T) {
	completer := &fakeCompleter{responses: []*CompletionResponse{
		{Text: violatingText()},
	}}
	svc := NewPolicyService(completer)

	first := &CompletionResponse{Text: violatingText()}
	_, err := svc.Enforce(context.Background(), first, "the original prompt", nil)

	require.NoError(t, err)
	for _, prompt := range completer.prompts {
		assert.Equal(t, "the original prompt", prompt)
	}
}
