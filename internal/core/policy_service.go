package core

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	// MaxCodeLines is the largest number of code-like lines a response may
	// contain before a corrective reissue.
	MaxCodeLines = 5
	// MaxPolicyRetries bounds the number of corrective reissues per request.
	MaxPolicyRetries = 2
)

// codeTokens are the line prefixes the heuristic treats as code outside a
// fenced block. Intentionally a heuristic, not a parser.
var codeTokens = []string{
	"def ", "class ", "for ", "while ", "if ", "elif ", "else:",
	"try:", "except", "with ", "import ", "from ", "#", "@",
	"return", "print(",
}

// CountCodeLines scans text line by line, toggling an in-fence flag on lines
// containing a triple-backtick marker. A line counts as code if it falls
// inside a fence or its stripped form starts with a recognized code token.
func CountCodeLines(text string) int {
	inBlock := false
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock || startsWithCodeToken(strings.TrimSpace(line)) {
			count++
		}
	}
	return count
}

func startsWithCodeToken(line string) bool {
	for _, token := range codeTokens {
		if strings.HasPrefix(line, token) {
			return true
		}
	}
	return false
}

// Completer issues chat completions; satisfied by LlamaService.
type Completer interface {
	CompleteChat(ctx context.Context, systemPrompt string, msg Message, model string) (*CompletionResponse, error)
}

// PolicyService enforces the post-hoc content policy: responses leaking more
// than MaxCodeLines code-like lines are reissued with a corrective system
// message, at most MaxPolicyRetries times.
type PolicyService struct {
	completer Completer
}

func NewPolicyService(completer Completer) *PolicyService {
	return &PolicyService{completer: completer}
}

// Enforce runs the bounded reissue loop over resp. onResponse, when non-nil,
// is invoked for every iteration's response before the policy check — the
// summary-update hook, which fires whether the response is accepted or
// reissued. Reissues reuse the original system prompt unchanged. On retry
// exhaustion the last response is returned anyway; a violation is never
// surfaced as an error.
func (s *PolicyService) Enforce(ctx context.Context, resp *CompletionResponse, systemPrompt string, onResponse func(*CompletionResponse) error) (*CompletionResponse, error) {
	retries := 0
	for {
		if onResponse != nil {
			if err := onResponse(resp); err != nil {
				return nil, err
			}
		}

		codeLineCount := CountCodeLines(resp.Text)
		if codeLineCount <= MaxCodeLines {
			return resp, nil
		}

		log.Printf("Warning: response blocked due to excessive code: %d lines.", codeLineCount)
		if retries >= MaxPolicyRetries {
			log.Println("Max retries reached. Returning last response anyway.")
			return resp, nil
		}

		retryMsg := Message{
			Role: RoleSystem,
			Content: fmt.Sprintf(
				"Your previous response contained too many lines of code (%d). Please reduce it to **at most %d lines**, and focus on reasoning or pseudocode.",
				codeLineCount, MaxCodeLines),
		}
		next, err := s.completer.CompleteChat(ctx, systemPrompt, retryMsg, "")
		if err != nil {
			return nil, fmt.Errorf("policy reissue failed: %w", err)
		}
		resp = next
		retries++
	}
}
