package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/socrabot/tutor-backend/internal/canvas"
	"github.com/socrabot/tutor-backend/internal/config"
	"github.com/socrabot/tutor-backend/internal/store"
)

// NumRelevantDocuments is how many documents similarity search retrieves for
// context.
const NumRelevantDocuments = 5

// TutorService is the pipeline orchestrator: it sequences embedding,
// retrieval, prompt assembly, summary management, completion, and policy
// enforcement for each incoming message.
type TutorService struct {
	dbStore store.Store
	llm     LLM
	prompts *PromptService
	policy  *PolicyService
	canvas  *canvas.Client // optional assignment-text fallback
}

func NewTutorService(dbStore store.Store, llm LLM, prompts *PromptService, policy *PolicyService, canvasClient *canvas.Client) *TutorService {
	return &TutorService{
		dbStore: dbStore,
		llm:     llm,
		prompts: prompts,
		policy:  policy,
		canvas:  canvasClient,
	}
}

// Ask answers a plain question against the course's document store: embed the
// message, retrieve similar documents, assemble the prompt (with the running
// summary when the user is known), and complete. Returns the raw streamed
// completion body; callers extract the readable content.
func (s *TutorService) Ask(ctx context.Context, courseID int64, message string, userID *int64) (string, error) {
	userMsg := Message{Role: RoleUser, Content: message}

	vector, err := s.llm.GenerateEmbedding(ctx, message, true)
	if err != nil {
		return "", fmt.Errorf("failed to embed user message: %w", err)
	}

	similar, err := s.dbStore.FindSimilarDocuments(ctx, courseID, vector, NumRelevantDocuments)
	if err != nil {
		return "", fmt.Errorf("failed to search similar documents: %w", err)
	}

	docText := NoDocumentsMarker
	if len(similar) > 0 {
		texts := make([]string, 0, len(similar))
		for _, scored := range similar {
			texts = append(texts, scored.Document.Text)
		}
		docText = "Based on relevant documents:\n" + strings.Join(texts, "\n") + "\n\n"
	}

	var summary *store.ConversationSummary
	if userID != nil {
		summary, err = s.dbStore.GetOrCreateSummary(ctx, *userID, courseID)
		if err != nil {
			return "", fmt.Errorf("failed to load conversation summary: %w", err)
		}
	}

	summaryContent := ""
	if summary != nil {
		summaryContent = summary.Content
	}
	systemPrompt := s.prompts.BuildSystemPrompt(docText, summaryContent)

	resp, err := s.llm.CompleteChat(ctx, systemPrompt, userMsg, "")
	if err != nil {
		return "", err
	}

	if userID != nil {
		if err := s.updateSummary(ctx, summary, message, resp.Text); err != nil {
			return "", err
		}
	}

	return resp.Text, nil
}

// AskCodeRequest is the orchestrator-side shape of an /ask-code call.
type AskCodeRequest struct {
	Message string
	UserID  *int64
	Codio   CodioContext
}

// AskCode answers a code-centric question under the course's policy mode,
// running the full policy-enforcement loop over the completion. Returns the
// raw streamed completion body of the final (accepted or exhausted) response.
func (s *TutorService) AskCode(ctx context.Context, req AskCodeRequest) (string, error) {
	courseID := config.CourseIDForName(req.Codio.AssignmentData.CourseName)
	policy := config.CoursePolicyFor(courseID)

	if strings.TrimSpace(req.Codio.GuidesPage.Content) == "" && s.canvas != nil && courseID != 0 {
		description, err := s.canvas.AssignmentDescription(ctx, courseID, req.Codio.AssignmentData.AssignmentName)
		if err != nil {
			log.Printf("Warning: canvas assignment lookup failed for course %d: %v", courseID, err)
		} else {
			req.Codio.GuidesPage.Content = description
		}
	}

	docText, err := s.prompts.BuildCoursePrompt(ctx, policy, req.Codio)
	if err != nil {
		return "", err
	}

	var summary *store.ConversationSummary
	if req.UserID != nil {
		summary, err = s.dbStore.GetOrCreateSummary(ctx, *req.UserID, courseID)
		if err != nil {
			return "", fmt.Errorf("failed to load conversation summary: %w", err)
		}
	}

	summaryContent := ""
	if summary != nil {
		summaryContent = summary.Content
	}
	systemPrompt := s.prompts.BuildSystemPrompt(docText, summaryContent)

	userMsg := Message{Role: RoleUser, Content: req.Message}
	resp, err := s.llm.CompleteChat(ctx, systemPrompt, userMsg, "")
	if err != nil {
		return "", err
	}

	// Every iteration's response feeds the summary, reissued or not, always
	// against the original user message.
	onResponse := func(r *CompletionResponse) error {
		if summary == nil {
			return nil
		}
		return s.updateSummary(ctx, summary, req.Message, r.Text)
	}

	final, err := s.policy.Enforce(ctx, resp, systemPrompt, onResponse)
	if err != nil {
		return "", err
	}

	return final.Text, nil
}

func (s *TutorService) updateSummary(ctx context.Context, summary *store.ConversationSummary, userMsg, assistantMsg string) error {
	newContent, err := s.llm.ReviseSummary(ctx, summary.Content, userMsg, assistantMsg)
	if err != nil {
		return err
	}
	if err := s.dbStore.UpdateSummary(ctx, summary, newContent); err != nil {
		return fmt.Errorf("failed to persist conversation summary: %w", err)
	}
	return nil
}
