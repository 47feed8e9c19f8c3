package main

import (
	"github.com/gin-gonic/gin"

	"github.com/Saniya-Mehdi/Aistudybuddy/internal/auth"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/config"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/jobs"
	"github.com/Saniya-Mehdi/Aistudybuddy/internal/study"
)

// setupRoutes はページとAPIの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, svc *study.Service, scheduler study.JobScheduler, store jobs.Store) {
	router.GET("/health", handleHealth)

	authManager := auth.NewManager(cfg)
	router.GET("/", authManager.LoginPage)
	router.POST("/login", authManager.Login)
	router.POST("/logout", authManager.Logout)
	router.GET("/dashboard", authManager.DashboardPage)

	router.POST("/upload_pdf", study.UploadHandler(svc, scheduler))
	router.GET("/progress/:id", progressHandler(store))
	router.DELETE("/progress/:id", cancelHandler(scheduler))
}
