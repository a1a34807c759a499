package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseMessagesMergesAdjacentRoles(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "first"},
		{Role: RoleSystem, Content: "second"},
		{Role: RoleUser, Content: "question"},
	}

	collapsed := CollapseMessages(messages)

	require.Len(t, collapsed, 2)
	assert.Equal(t, RoleSystem, collapsed[0].Role)
	assert.Equal(t, "first\n\nsecond", collapsed[0].Content)
	assert.Equal(t, RoleUser, collapsed[1].Role)
	assert.Equal(t, "question", collapsed[1].Content)
}

func TestCollapseMessagesPreservesContent(t *testing.T) {
	parts := []string{"a", "b", "c", "d"}
	var messages []Message
	for _, p := range parts {
		messages = append(messages, Message{Role: RoleUser, Content: p})
	}

	collapsed := CollapseMessages(messages)

	require.Len(t, collapsed, 1)
	assert.Equal(t, strings.Join(parts, "\n\n"), collapsed[0].Content)
}

func TestCollapseMessagesNeverGrows(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleUser, Content: "u3"},
	}

	collapsed := CollapseMessages(messages)
	assert.LessOrEqual(t, len(collapsed), len(messages))
	assert.Len(t, collapsed, 3)
}

func TestCollapseMessagesAssociative(t *testing.T) {
	head := []Message{
		{Role: RoleSystem, Content: "s1"},
		{Role: RoleSystem, Content: "s2"},
	}
	tail := []Message{
		{Role: RoleSystem, Content: "s3"},
		{Role: RoleUser, Content: "u1"},
	}

	all := append(append([]Message{}, head...), tail...)

	direct := CollapseMessages(all)
	grouped := CollapseMessages(append(CollapseMessages(head), tail...))

	assert.Equal(t, direct, grouped)
	// Collapsing is idempotent.
	assert.Equal(t, direct, CollapseMessages(direct))
}

func TestCollapseMessagesEmpty(t *testing.T) {
	assert.Nil(t, CollapseMessages(nil))
}

func TestCollapseMessagesDropsNames(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hi", Name: "sam"},
		{Role: RoleUser, Content: "there", Name: "sam"},
	}

	collapsed := CollapseMessages(messages)

	require.Len(t, collapsed, 1)
	assert.Equal(t, "hi\n\nthere", collapsed[0].Content)
	assert.Empty(t, collapsed[0].Name)
}
