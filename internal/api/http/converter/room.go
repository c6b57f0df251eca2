package converter

import (
	"time"

	"github.com/immxrtalbeast/burnchat/internal/domain"
	"github.com/immxrtalbeast/burnchat/internal/service"
)

type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

type RoomInfoResponse struct {
	ConnectedCount int `json:"connectedCount"`
	MaxUsers       int `json:"maxUsers"`
}

type TTLResponse struct {
	TTL int64 `json:"ttl"`
}

func CreatedRoomToApi(r *domain.Room) *CreateRoomResponse {
	return &CreateRoomResponse{RoomID: r.ID}
}

func RoomInfoToApi(info *service.RoomInfo) *RoomInfoResponse {
	return &RoomInfoResponse{
		ConnectedCount: info.ConnectedCount,
		MaxUsers:       info.MaxUsers,
	}
}

// TTLToApi truncates to whole seconds like the store's own TTL command.
func TTLToApi(ttl time.Duration) *TTLResponse {
	if ttl < 0 {
		ttl = 0
	}
	return &TTLResponse{TTL: int64(ttl / time.Second)}
}
