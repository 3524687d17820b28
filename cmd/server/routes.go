package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"magnify-lend.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	healthHandler      *handlers.HealthHandler
	telegramBotHandler *handlers.TelegramBotHandler
	worldIDHandler     *handlers.WorldIDHandler
	initDataAuth       gin.HandlerFunc
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/health", d.healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		telegramBot := api.Group("/telegram-bot")
		{
			telegramBot.POST("/processUpdate", d.telegramBotHandler.ProcessUpdate)
		}

		worldID := api.Group("/world-id")
		{
			worldID.GET("/verify", d.worldIDHandler.VerifyPage)
			worldID.POST("/verify-proof", d.initDataAuth, d.worldIDHandler.VerifyProof)
		}
	}
}
