package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/socrabot/tutor-backend/internal/config"
)

// NoSolutionMarker is interpolated when no reference solution exists for the
// assignment. An explicit marker, never an empty block.
const NoSolutionMarker = "No Solution documents found in the database."

// NoDocumentsMarker is interpolated when similarity search returns nothing.
const NoDocumentsMarker = "No relevant documents found in the database."

const chatSystemPrompt = "Your role is to assist users in finding relevant information based on their query and provided documents.\n" +
	"Do not use markdown syntax like ``` for code blocks.\n" +
	"Here are the relevant documents:\n" +
	"%s\n\n" +
	"%s\n" +
	"Please respond to the user's query below. At the beginning of every response, please add this warning - *This chatbot is an experimental feature, kindly verify resources before proceeding.*"

const summaryBlock = `
Below is a summary of the past conversation.
If the user seems to be referring to something from the past conversation, you should use the latter parts of the summary as context, since those are the more recent messages.
<summary>
%s
</summary>
`

const assignmentHeader = `The student's name is %s

The following is the assignment text.
If the student has questions about understanding the assignment, use this content:
%s
`

const filesHeader = `

The following are files. They may contain code written by the user.
If the student is asking about errors or bugs in their code, reference these files:
`

const solutionDocsHeader = `

The following are relevant solution documents retrieved based on semantic similarity to the assignment:
`

const comparisonRubric = `
Your goals:
    1. Determine whether the student's logic is **fully correct**, **partially correct**, or **incorrect**, based primarily on the assignment instructions.
    2. Identify **any missing, incorrect, or unnecessary steps** that could cause the logic to fail or behave unexpectedly.
    3. Provide **constructive guidance** that:
        - Respects the student's chosen logic and structure.
        - Suggests improvements **within their current approach**, rather than rewriting it to match the reference.
        - Uses the reference only for subtle checks like corner cases or formatting, not to enforce code structure.
    4. Do **not** encourage or suggest copying or exactly replicating the reference logic.
    5. Limit the response to 50 words or fewer.
    6. Format the response clearly for easy readability.

Use your explanation to:
    - Correct logical flaws.
    - Point out better alternatives **only if necessary for correctness or clarity**.
    - Help the student progress with their own logic style.
`

const guidedInstructions = `

Instructions for response:

Do not provide full solutions.

Break down problems into clear, logical steps.

Encourage critical thinking when appropriate.

Limit the response to 50 words or fewer.

Format the response clearly for easy readability.
`

// PromptService assembles the bounded system prompts sent to the completion
// endpoint from retrieved documents, course policy, and conversation summary.
type PromptService struct {
	llm LLM
}

func NewPromptService(llm LLM) *PromptService {
	return &PromptService{llm: llm}
}

// BuildSystemPrompt interpolates the documents block and, only when there is
// prior summary content, the summary block. An empty summary omits the block
// entirely so the model never sees a dangling empty-summary marker.
func (s *PromptService) BuildSystemPrompt(docText, summaryContent string) string {
	summaryPart := ""
	if summaryContent != "" {
		summaryPart = fmt.Sprintf(summaryBlock, summaryContent)
	}
	return fmt.Sprintf(chatSystemPrompt, docText, summaryPart)
}

// SolutionText returns the combined content of the assignment's solution
// file. A missing index entry or unreadable file yields an empty string; this
// is expected for assignments with no official solution.
func (s *PromptService) SolutionText(policy config.CoursePolicy, assignmentName string) string {
	path := policy.SolutionIndex[assignmentName]
	if path == "" {
		return ""
	}
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Failed to read solution file %s: %v", path, err)
		return ""
	}
	return string(content)
}

// BuildCoursePrompt builds the course-policy-specific document text for an
// /ask-code request: assignment context, student files (raw or described in
// natural language, per mode), reference solution, rubric, and any active
// error state.
func (s *PromptService) BuildCoursePrompt(ctx context.Context, policy config.CoursePolicy, codio CodioContext) (string, error) {
	solutionText := s.SolutionText(policy, codio.AssignmentData.AssignmentName)
	solutionPart := NoSolutionMarker
	if solutionText != "" {
		solutionPart = "Based on Solution Document:\n" + solutionText + "\n\n"
	}

	var fileText strings.Builder
	for _, file := range codio.Files {
		if strings.HasSuffix(file.Path, ".py") {
			fileText.WriteString(file.Content)
		}
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, assignmentHeader, codio.AssignmentData.UserName, codio.GuidesPage.Content)

	switch policy.Mode {
	case config.ModeNaturalLanguage:
		description, err := s.llm.GenerateNaturalLanguage(ctx, fileText.String())
		if err != nil {
			return "", fmt.Errorf("failed to describe student code: %w", err)
		}
		doc.WriteString("\n\nThe following is a natural language description of the student's code:\n")
		doc.WriteString(description)
		doc.WriteString(solutionDocsHeader)
		doc.WriteString(solutionPart)
		doc.WriteString(comparisonRubric)

	case config.ModeSolutionComparison:
		doc.WriteString(filesHeader)
		doc.WriteString(fileText.String())
		doc.WriteString(solutionDocsHeader)
		doc.WriteString(solutionPart)
		doc.WriteString(comparisonRubric)

	default: // guided, no solutions
		doc.WriteString(filesHeader)
		doc.WriteString(fileText.String())
		doc.WriteString(guidedInstructions)
	}

	if codio.Error.ErrorState {
		doc.WriteString("\n\nThe following is the student's error message:\n")
		doc.WriteString(codio.Error.Text)
	}

	return doc.String(), nil
}
