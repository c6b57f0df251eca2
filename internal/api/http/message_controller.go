package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/burnchat/internal/api/http/converter"
	"github.com/immxrtalbeast/burnchat/internal/service"
)

type MessageController struct {
	messages service.MessageInteractor
}

func NewMessageController(messages service.MessageInteractor) *MessageController {
	return &MessageController{messages: messages}
}

func (c *MessageController) Append(ctx *gin.Context) {
	type AppendRequest struct {
		Sender string `json:"sender" binding:"required"`
		Text   string `json:"text" binding:"required"`
	}
	var req AppendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	msg, err := c.messages.Append(ctx.Request.Context(), authFrom(ctx), req.Sender, req.Text)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.MessageToApi(msg))
}

func (c *MessageController) List(ctx *gin.Context) {
	messages, err := c.messages.List(ctx.Request.Context(), authFrom(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.MessagesToApi(messages))
}

func (c *MessageController) React(ctx *gin.Context) {
	type ReactRequest struct {
		MessageID string `json:"messageId" binding:"required"`
		Emoji     string `json:"emoji" binding:"required"`
		Username  string `json:"username" binding:"required"`
	}
	var req ReactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	err := c.messages.ToggleReaction(ctx.Request.Context(), authFrom(ctx), req.MessageID, req.Emoji, req.Username)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (c *MessageController) Read(ctx *gin.Context) {
	type ReadRequest struct {
		MessageID string `json:"messageId" binding:"required"`
		Username  string `json:"username" binding:"required"`
	}
	var req ReadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := c.messages.MarkRead(ctx.Request.Context(), authFrom(ctx), req.MessageID, req.Username); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (c *MessageController) Typing(ctx *gin.Context) {
	type TypingRequest struct {
		Username string `json:"username" binding:"required"`
		IsTyping *bool  `json:"isTyping" binding:"required"`
	}
	var req TypingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := c.messages.SetTyping(ctx.Request.Context(), authFrom(ctx), req.Username, *req.IsTyping); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
