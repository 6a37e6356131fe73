package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitecraft/storefront-api/models"
	"gorm.io/gorm"
)

// StartChat upserts the customer and returns their chat, creating or reopening it.
// A non-empty firstMessage is posted as the customer's opening message.
func StartChat(db *gorm.DB, input CustomerInput, firstMessage string) (*models.Chat, error) {
	var chat models.Chat

	err := db.Transaction(func(tx *gorm.DB) error {
		customer, err := UpsertCustomer(tx, input)
		if err != nil {
			return err
		}

		err = tx.Where("customer_id = ?", customer.ID).First(&chat).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			chat = models.Chat{CustomerID: customer.ID, Status: models.ChatStatusActive}
			if err := tx.Omit("Customer", "Messages").Create(&chat).Error; err != nil {
				return fmt.Errorf("failed to create chat: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up chat: %w", err)
		case chat.Status != models.ChatStatusActive:
			if err := tx.Model(&chat).Update("status", models.ChatStatusActive).Error; err != nil {
				return fmt.Errorf("failed to reopen chat: %w", err)
			}
		}

		if text := strings.TrimSpace(firstMessage); text != "" {
			msg := models.ChatMessage{
				ChatID:     chat.ID,
				SenderType: models.SenderCustomer,
				SenderID:   customer.ID,
				Message:    text,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("failed to create message: %w", err)
			}
		}

		chat.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// PostChatMessage appends a message to a chat. Customer messages are attributed to
// the chat's customer; admin messages to senderID.
func PostChatMessage(db *gorm.DB, chatID, senderType, senderID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Message: "message is required", Fields: map[string]string{"message": "is required"}}
	}

	var msg models.ChatMessage
	err := db.Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return fmt.Errorf("failed to load chat: %w", err)
		}

		if senderType == models.SenderCustomer {
			senderID = chat.CustomerID
		}
		msg = models.ChatMessage{
			ChatID:     chat.ID,
			SenderType: senderType,
			SenderID:   senderID,
			Message:    text,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		// Keeps the admin inbox ordered by latest activity
		return tx.Model(&chat).Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkChatMessageRead marks one message in a chat as read
func MarkChatMessageRead(db *gorm.DB, chatID, messageID string) error {
	result := db.Model(&models.ChatMessage{}).
		Where("id = ? AND chat_id = ?", messageID, chatID).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}
