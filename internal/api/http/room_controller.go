package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/burnchat/internal/api/http/converter"
	"github.com/immxrtalbeast/burnchat/internal/service"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
)

type RoomController struct {
	rooms service.RoomInteractor
	log   *slog.Logger
}

func NewRoomController(rooms service.RoomInteractor, log *slog.Logger) *RoomController {
	if log == nil {
		log = slog.Default()
	}
	return &RoomController{rooms: rooms, log: log}
}

func (c *RoomController) CreateRoom(ctx *gin.Context) {
	type CreateRoomRequest struct {
		MaxUsers int `json:"maxUsers"`
	}
	var req CreateRoomRequest
	// The body is optional; an empty one means default capacity.
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	room, err := c.rooms.CreateRoom(ctx.Request.Context(), req.MaxUsers)
	if err != nil {
		c.log.Error("failed to create room", sl.Err(err))
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.CreatedRoomToApi(room))
}

func (c *RoomController) TTL(ctx *gin.Context) {
	ttl, err := c.rooms.RemainingLifetime(ctx.Request.Context(), authFrom(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.TTLToApi(ttl))
}

func (c *RoomController) Info(ctx *gin.Context) {
	roomID := ctx.Query("roomId")
	if roomID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}

	info, err := c.rooms.RoomInfo(ctx.Request.Context(), roomID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, converter.RoomInfoToApi(info))
}

func (c *RoomController) Destroy(ctx *gin.Context) {
	if err := c.rooms.DestroyRoom(ctx.Request.Context(), authFrom(ctx)); err != nil {
		c.log.Error("failed to destroy room", slog.String("room_id", ctx.Query("roomId")), sl.Err(err))
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
