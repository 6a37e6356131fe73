package controllers

import (
	"errors"
	"net/http"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/middleware"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartChatRequest represents the contact details a customer opens a chat with
type StartChatRequest struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email"`
	NationalID string `json:"nationalId"`
	Address    string `json:"address"`
	Message    string `json:"message"`
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// StartChat handles POST /api/v1/chats - finds or creates the customer's chat
func StartChat(c *gin.Context) {
	var req StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	chat, err := services.StartChat(config.GetDB(), services.CustomerInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		NationalID: req.NationalID,
		Address:    req.Address,
	}, req.Message)
	if err != nil {
		respondServiceError(c, err, "Failed to start chat")
		return
	}

	respondOK(c, http.StatusCreated, chat)
}

// SendMessage handles POST /api/v1/chats/:id/messages - a customer message
func SendMessage(c *gin.Context) {
	postMessage(c, models.SenderCustomer, "")
}

// ReplyToChat handles POST /api/v1/admin/chats/:id/messages - an admin reply
func ReplyToChat(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}
	postMessage(c, models.SenderAdmin, adminID)
}

func postMessage(c *gin.Context, senderType, senderID string) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := services.PostChatMessage(config.GetDB(), c.Param("id"), senderType, senderID, req.Message)
	if err != nil {
		respondServiceError(c, err, "Failed to create message")
		return
	}

	respondOK(c, http.StatusCreated, message)
}

// ListMessages handles GET /api/v1/chats/:id/messages (and the admin equivalent) -
// messages oldest first
func ListMessages(c *gin.Context) {
	db := config.GetDB()

	var chat models.Chat
	if err := db.First(&chat, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "CHAT_NOT_FOUND", "Chat not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load chat")
		return
	}

	var messages []models.ChatMessage
	if err := db.Where("chat_id = ?", chat.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch messages")
		return
	}

	respondOK(c, http.StatusOK, messages)
}

// ChatSummary is an inbox row: the chat, its customer and unread customer messages
type ChatSummary struct {
	models.Chat
	UnreadCount int64 `json:"unread_count"`
}

// ListChats handles GET /api/v1/admin/chats - most recently active first.
// Optional ?status=active|closed.
func ListChats(c *gin.Context) {
	db := config.GetDB()
	query := db.Preload("Customer")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var chats []models.Chat
	if err := query.Order("updated_at DESC").Find(&chats).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch chats")
		return
	}

	type unreadRow struct {
		ChatID string
		Count  int64
	}
	var rows []unreadRow
	if err := db.Model(&models.ChatMessage{}).
		Select("chat_id, COUNT(*) AS count").
		Where("sender_type = ? AND is_read = ?", models.SenderCustomer, false).
		Group("chat_id").
		Scan(&rows).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count unread messages")
		return
	}
	unread := make(map[string]int64, len(rows))
	for _, r := range rows {
		unread[r.ChatID] = r.Count
	}

	summaries := make([]ChatSummary, len(chats))
	for i, chat := range chats {
		summaries[i] = ChatSummary{Chat: chat, UnreadCount: unread[chat.ID]}
	}

	respondOK(c, http.StatusOK, summaries)
}

// MarkMessageRead handles PATCH /api/v1/admin/chats/:id/messages/:messageId/read
func MarkMessageRead(c *gin.Context) {
	if err := services.MarkChatMessageRead(config.GetDB(), c.Param("id"), c.Param("messageId")); err != nil {
		respondServiceError(c, err, "Failed to mark message read")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message marked as read",
	})
}
