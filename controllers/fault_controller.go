package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/line-rescue/line-rescue-api/middleware"
	"github.com/line-rescue/line-rescue-api/models"
	"github.com/line-rescue/line-rescue-api/services"
)

// CreateFaultRequest represents the request body for reporting a fault
type CreateFaultRequest struct {
	Location struct {
		Address     string `json:"address" binding:"required"`
		City        string `json:"city" binding:"required"`
		Coordinates struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"coordinates"`
	} `json:"location" binding:"required"`
	Severity    string `json:"severity" binding:"required,oneof=low medium high"`
	Description string `json:"description" binding:"required"`
}

// UpdateFaultStatusRequest represents the request body for a status update
type UpdateFaultStatusRequest struct {
	Status     string  `json:"status" binding:"required"`
	AssignedTo *string `json:"assignedTo"`
}

// ListFaults handles GET /api/v1/faults - lists faults newest first,
// optionally filtered by severity
func ListFaults(c *gin.Context) {
	severity := c.Query("severity")
	if severity != "" && !models.IsValidSeverity(severity) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SEVERITY",
				"message": "Severity must be one of: low, medium, high",
			},
		})
		return
	}

	faults, err := services.GetFaultService().List(severity)
	if err != nil {
		log.Printf("Error fetching faults: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch faults",
			},
		})
		return
	}

	// The OTP is a one-time secret: scrub it from anything past pending,
	// and resolve photo keys into serveable URLs
	imageService := services.GetImageService()
	for i := range faults {
		faults[i].Sanitize()
		if faults[i].PhotoS3Key != nil && imageService != nil {
			if url, err := imageService.GetImageURL(*faults[i].PhotoS3Key); err == nil && url != "" {
				faults[i].PhotoURL = &url
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    faults,
	})
}

// GetFault handles GET /api/v1/faults/:id - fetches a single fault
func GetFault(c *gin.Context) {
	fault, err := services.GetFaultService().Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrFaultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FAULT_NOT_FOUND",
					"message": "Fault not found",
				},
			})
			return
		}

		log.Printf("Error fetching fault: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch fault",
			},
		})
		return
	}

	fault.Sanitize()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    fault,
	})
}

// CreateFault handles POST /api/v1/faults - reports a new fault. The store
// assigns the identifier, OTP, timestamp and pending status.
func CreateFault(c *gin.Context) {
	var req CreateFaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	fault, err := services.GetFaultService().Create(services.CreateFaultInput{
		Location: models.Location{
			Address: req.Location.Address,
			City:    req.Location.City,
			Coordinates: models.Coordinates{
				Lat: req.Location.Coordinates.Lat,
				Lng: req.Location.Coordinates.Lng,
			},
		},
		Severity:    req.Severity,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("Error creating fault: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create fault",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    fault,
	})
}

// UpdateFaultStatus handles PATCH /api/v1/faults/:id/status - writes a new
// status (and optionally an assignee) to an existing fault. Transitions are
// not constrained: any status may move to any other.
func UpdateFaultStatus(c *gin.Context) {
	var req UpdateFaultStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	if !models.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Status must be one of: pending, in-progress, resolved",
			},
		})
		return
	}

	fault, err := services.GetFaultService().UpdateStatus(c.Param("id"), req.Status, req.AssignedTo)
	if err != nil {
		if errors.Is(err, services.ErrFaultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FAULT_NOT_FOUND",
					"message": "Fault not found",
				},
			})
			return
		}

		log.Printf("Error updating fault status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update fault status",
			},
		})
		return
	}

	fault.Sanitize()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    fault,
	})
}

// AcceptFault handles POST /api/v1/faults/:id/accept - the current lineman
// takes a pending job. The response is the one place the OTP is revealed
// after creation, so it can be exchanged with the customer on-site.
func AcceptFault(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	fault, err := services.GetFaultService().Accept(c.Param("id"), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFaultNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FAULT_NOT_FOUND",
					"message": "Fault not found",
				},
			})
		case errors.Is(err, services.ErrFaultNotPending):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FAULT_NOT_PENDING",
					"message": "This job has already been accepted or resolved",
				},
			})
		default:
			log.Printf("Error accepting fault: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to accept fault",
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    fault,
	})
}
