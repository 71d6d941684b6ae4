package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/line-rescue/line-rescue-api/config"
	"github.com/line-rescue/line-rescue-api/controllers"
	"github.com/line-rescue/line-rescue-api/middleware"
	"github.com/line-rescue/line-rescue-api/models"
	"github.com/line-rescue/line-rescue-api/services"
	"github.com/line-rescue/line-rescue-api/utils"
)

func main() {
	// Basic logging
	log.Println("Starting Line Rescue API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.Fault{}, &models.User{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Fault store adapter over the database
	services.InitFaultService(db)

	// Session store, restoring any persisted session from disk
	services.InitSessionService(cfg)
	if services.GetSessionService().IsAuthenticated() {
		log.Println("Restored persisted session")
	}

	// Photo storage: S3 when configured, local disk otherwise
	if cfg.HasS3() {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		services.InitImageService(s3Service)
		log.Println("Photo storage: S3 bucket", cfg.AWSS3Bucket)
	} else {
		services.InitLocalImageService(utils.UploadDir)
		log.Println("Photo storage: local directory", utils.UploadDir)
	}

	// Initialize Gin router
	router := setupRouter()

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with all routes and middleware
func setupRouter() *gin.Engine {
	router := gin.Default()

	// The SPA frontend runs on a different origin
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Session endpoints
		auth := v1.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/register", controllers.Register)
			auth.POST("/logout", controllers.Logout)
			auth.GET("/me", middleware.RequireSession(), controllers.Me)
		}

		// Fault endpoints. Creation is open to the fault-reporting actor;
		// everything else requires an authenticated lineman.
		faults := v1.Group("/faults")
		{
			faults.POST("", controllers.CreateFault)
			faults.GET("", middleware.RequireSession(), controllers.ListFaults)
			faults.GET("/:id", middleware.RequireSession(), controllers.GetFault)
			faults.PATCH("/:id/status", middleware.RequireSession(), controllers.UpdateFaultStatus)
			faults.POST("/:id/accept",
				middleware.RequireSession(),
				middleware.RequireRole(models.RoleLineman),
				controllers.AcceptFault,
			)
			faults.POST("/:id/photo", middleware.RequireSession(), controllers.UploadFaultPhoto)
		}

		// Locally stored fault photos
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Line Rescue API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
