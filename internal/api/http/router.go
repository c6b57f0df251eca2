package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/burnchat/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	SecureCookies  bool
}

func SetupRouter(
	opts RouterOptions,
	gate service.Admitter,
	store Pinger,
	roomController *RoomController,
	messageController *MessageController,
	realtimeController *RealtimeController,
) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	if len(opts.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = opts.AllowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{
		"Content-Type",
		"Origin",
		"Accept",
		TokenHeader,
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"}
	config.ExposeHeaders = []string{"Set-Cookie"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		if store != nil {
			pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(pingCtx); err != nil {
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", ClientTokenMiddleware(opts.SecureCookies))
	admitted := AdmissionMiddleware(gate)

	// Long-lived, so it stays outside the request timeout.
	if realtimeController != nil {
		api.GET("/realtime", admitted, realtimeController.Stream)
	}

	timed := api.Group("")
	if opts.RequestTimeout > 0 {
		timed.Use(RequestTimeout(opts.RequestTimeout))
	}

	if roomController != nil {
		rooms := timed.Group("/room")
		rooms.POST("/create", roomController.CreateRoom)
		rooms.GET("/info", roomController.Info)
		rooms.GET("/ttl", admitted, roomController.TTL)
		rooms.DELETE("", admitted, roomController.Destroy)
	}

	if messageController != nil {
		messages := timed.Group("/messages", admitted)
		messages.POST("", messageController.Append)
		messages.GET("", messageController.List)
		messages.POST("/react", messageController.React)

		timed.POST("/read", admitted, messageController.Read)
		timed.POST("/typing", admitted, messageController.Typing)
	}

	return router
}
