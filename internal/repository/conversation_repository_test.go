package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

func TestConversationRepository_FindActive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	customer := insertTestCustomer(t, repo, "Somchai", "66812345678")

	_, err := repo.Conversation().FindActive(customer.ID, models.ChannelWhatsApp)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	conversation := insertTestConversation(t, repo, customer.ID)

	found, err := repo.Conversation().FindActive(customer.ID, models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, found.ID)

	// Closing the conversation makes the pair eligible for a fresh one.
	conversation.Status = models.ConversationStatusClosed
	require.NoError(t, repo.Conversation().Update(conversation))

	_, err = repo.Conversation().FindActive(customer.ID, models.ChannelWhatsApp)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConversationRepository_RecordMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	customer := insertTestCustomer(t, repo, "Somchai", "66812345678")
	conversation := insertTestConversation(t, repo, customer.ID)

	at := time.Now().Add(time.Minute)
	require.NoError(t, repo.Conversation().RecordMessage(conversation.ID, at, true))
	require.NoError(t, repo.Conversation().RecordMessage(conversation.ID, at.Add(time.Second), true))
	require.NoError(t, repo.Conversation().RecordMessage(conversation.ID, at.Add(2*time.Second), false))

	got, err := repo.Conversation().GetByID(conversation.ID)
	require.NoError(t, err)
	// Only inbound messages increment the unread counter.
	assert.Equal(t, 2, got.UnreadCount)
	assert.WithinDuration(t, at.Add(2*time.Second), got.LastMessageAt, time.Second)

	require.NoError(t, repo.Conversation().ResetUnread(conversation.ID))

	got, err = repo.Conversation().GetByID(conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount)
}

func TestConversationRepository_List(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	agent := insertTestUser(t, repo, "agent1")
	somchai := insertTestCustomer(t, repo, "Somchai", "66812345678")
	malee := insertTestCustomer(t, repo, "Malee", "66887654321")

	assigned := insertTestConversation(t, repo, somchai.ID)
	assigned.AssignedToID = nullString(agent.ID)
	require.NoError(t, repo.Conversation().Update(assigned))

	unassigned := insertTestConversation(t, repo, malee.ID)

	archived := &models.Conversation{
		CustomerID: somchai.ID,
		Channel:    models.ChannelLine,
		Status:     models.ConversationStatusArchived,
	}
	require.NoError(t, repo.Conversation().Create(archived))

	// Default listing hides archived conversations.
	items, err := repo.Conversation().List(models.ConversationFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.NotEqual(t, models.ConversationStatusArchived, item.Status)
		assert.NotEmpty(t, item.CustomerName)
	}

	items, err = repo.Conversation().List(models.ConversationFilter{AssignedToID: agent.ID, Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, assigned.ID, items[0].ID)
	assert.Equal(t, agent.Username, items[0].AssignedToName.String)

	items, err = repo.Conversation().List(models.ConversationFilter{Unassigned: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, unassigned.ID, items[0].ID)

	items, err = repo.Conversation().List(models.ConversationFilter{Search: "malee", Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Malee", items[0].CustomerName)

	items, err = repo.Conversation().List(models.ConversationFilter{Status: models.ConversationStatusArchived, Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, archived.ID, items[0].ID)
}

func TestConversationRepository_ListItemPreview(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	customer := insertTestCustomer(t, repo, "Somchai", "66812345678")
	conversation := insertTestConversation(t, repo, customer.ID)

	insertTestMessage(t, repo, conversation.ID, models.DirectionInbound, models.MessageStatusDelivered, "older")
	insertTestMessage(t, repo, conversation.ID, models.DirectionInbound, models.MessageStatusDelivered, "newest")

	item, err := repo.Conversation().GetListItem(conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, "Somchai", item.CustomerName)
	assert.Equal(t, "newest", item.LastMessagePreview.String)
}
