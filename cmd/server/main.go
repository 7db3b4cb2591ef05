package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studioflow-system/config"
	"studioflow-system/internal/commission"
	"studioflow-system/internal/database"
	"studioflow-system/internal/gateway/handlers"
	"studioflow-system/internal/gateway/middleware"
	"studioflow-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	aggregator := commission.NewSessionAggregator(db, commission.NewSalesLedgerSource(db))
	profiles := commission.NewProfileResolver(db)
	recorder := commission.NewCalculationRecorder(db)
	directory := commission.NewOrganizationDirectory(db)
	service := commission.NewService(aggregator, profiles, recorder, directory, redisClient, cfg.DefaultTimezone)

	commissionsHandler := handlers.NewCommissionsHTTPHandler(service)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(cfg.RateLimit))

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		commissions := protected.Group("/commissions")
		{
			commissions.POST("/calculate", commissionsHandler.CalculateCommission)
			commissions.GET("/history/:trainerId", commissionsHandler.GetCalculationHistory)
			commissions.GET("/report", commissionsHandler.GetMonthlyReport)
		}

		trainers := protected.Group("/trainers")
		{
			trainers.GET("/:id/commission-settings", commissionsHandler.GetCommissionSettings)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	addr := ":" + cfg.Port
	log.Printf("Starting commission server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
