package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"magnify-lend.backend/internal/infrastructure/telegram"
	"magnify-lend.backend/internal/usecases"
	"magnify-lend.backend/pkg/logger"
	"magnify-lend.backend/pkg/metrics"
	"magnify-lend.backend/pkg/redis"
)

// Telegram retries webhooks aggressively; updates already being processed
// are skipped for this long.
const updateDedupeTTL = 10 * time.Minute

// TelegramBotHandler handles Telegram webhook endpoints
type TelegramBotHandler struct {
	botUsecase *usecases.BotUsecase
}

// NewTelegramBotHandler creates a new Telegram bot handler
func NewTelegramBotHandler(botUsecase *usecases.BotUsecase) *TelegramBotHandler {
	return &TelegramBotHandler{botUsecase: botUsecase}
}

// ProcessUpdate handles incoming webhook updates from Telegram
// POST /api/telegram-bot/processUpdate
func (h *TelegramBotHandler) ProcessUpdate(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Always 200: Telegram keeps redelivering anything else.
	c.JSON(http.StatusOK, gin.H{"received": true})

	ctx := c.Request.Context()

	key := fmt.Sprintf("telegram:update:%d", update.UpdateID)
	fresh, err := redis.SetNX(ctx, key, 1, updateDedupeTTL)
	if err != nil {
		logger.Warn(ctx, "update dedupe check failed", zap.Error(err))
	} else if !fresh {
		logger.Debug(ctx, "duplicate update skipped", zap.Int64("update_id", update.UpdateID))
		return
	}

	metrics.WebhookUpdates.Inc()
	h.botUsecase.HandleUpdate(ctx, &update)
}
