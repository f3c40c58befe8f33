package repository_test

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func insertTestUser(t *testing.T, repo repository.Repository, username string) *models.User {
	t.Helper()

	user := &models.User{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: "$2a$10$notarealhash",
		Role:           models.UserRoleAgent,
		IsActive:       true,
	}
	require.NoError(t, repo.User().Create(user))
	return user
}

func insertTestCustomer(t *testing.T, repo repository.Repository, name, phone string, tags ...string) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		Name:       name,
		Phone:      sql.NullString{String: phone, Valid: phone != ""},
		WhatsAppID: sql.NullString{String: phone, Valid: phone != ""},
		Language:   "en",
		Timezone:   "Asia/Bangkok",
		IsActive:   true,
		Tags:       tags,
	}
	require.NoError(t, repo.Customer().Create(customer))
	return customer
}

func insertTestConversation(t *testing.T, repo repository.Repository, customerID string) *models.Conversation {
	t.Helper()

	conversation := &models.Conversation{
		CustomerID: customerID,
		Channel:    models.ChannelWhatsApp,
		Status:     models.ConversationStatusOpen,
	}
	require.NoError(t, repo.Conversation().Create(conversation))
	return conversation
}

func insertTestMessage(t *testing.T, repo repository.Repository, conversationID string, direction models.MessageDirection, status models.MessageStatus, content string) *models.Message {
	t.Helper()

	message := &models.Message{
		ConversationID: conversationID,
		Type:           models.MessageTypeText,
		Content:        content,
		Direction:      direction,
		Status:         status,
	}
	require.NoError(t, repo.Message().Create(message))
	return message
}

func insertTestQuotation(t *testing.T, repo repository.Repository, customerID, createdByID string, seq int) *models.Quotation {
	t.Helper()

	items := models.QuotationItems{
		{Description: "Consulting", Quantity: 10, UnitPrice: 1200},
	}
	totals := models.ComputeTotals(items, 0, 7)

	quotation := &models.Quotation{
		QuoteNumber:     fmt.Sprintf("QT20260824%03d", seq),
		CustomerID:      customerID,
		Title:           "Service proposal",
		Items:           items,
		Subtotal:        totals.Subtotal,
		TaxPercent:      7,
		TaxAmount:       totals.TaxAmount,
		TotalAmount:     totals.TotalAmount,
		PaymentTerms:    "50% deposit, 50% on delivery",
		ValidityDays:    30,
		Status:          models.QuotationStatusDraft,
		CreatedByID:     createdByID,
	}
	require.NoError(t, repo.Quotation().Create(quotation))
	return quotation
}
