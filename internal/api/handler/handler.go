package handler

import (
	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/internal/realtime"
	"github.com/d60-Lab/social-feed/internal/service"
)

// Handler HTTP 与 WebSocket 入口
type Handler struct {
	feedService         service.FeedService
	interactionService  service.InteractionService
	profileService      service.ProfileService
	notificationService service.NotificationService
	bus                 realtime.Bus
	feedCfg             config.FeedConfig
}

func NewHandler(
	feedService service.FeedService,
	interactionService service.InteractionService,
	profileService service.ProfileService,
	notificationService service.NotificationService,
	bus realtime.Bus,
	feedCfg config.FeedConfig,
) *Handler {
	return &Handler{
		feedService:         feedService,
		interactionService:  interactionService,
		profileService:      profileService,
		notificationService: notificationService,
		bus:                 bus,
		feedCfg:             feedCfg,
	}
}
