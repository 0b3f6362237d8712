package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/config"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/handler"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/model"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/internal/service"
	"github.com/BaoBao112233/AI-single-agent-chat-with-pdf/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	chatModel := model.NewOpenAIChatModel(cfg.OpenAI)

	chatService, err := service.NewChatService(cfg, chatModel)
	if err != nil {
		logger.Fatalf("Failed to init chat service: %v", err)
	}
	defer chatService.GetStorage().Close()

	aiHandler := handler.NewAIHandler(chatService, cfg.Upload.Dir)

	router := setupRouter(cfg, aiHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	if err := server.Close(); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

func setupRouter(cfg *config.Config, aiHandler *handler.AIHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", aiHandler.Health)

	ai := router.Group("/ai")
	{
		ai.POST("/chat", aiHandler.Chat)
	}

	upload := router.Group("/upload")
	{
		upload.POST("/pdf", aiHandler.UploadPDF)
	}

	return router
}
