package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/line-rescue/line-rescue-api/middleware"
	"github.com/line-rescue/line-rescue-api/services"
)

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the request body for registering
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login - establishes a mock session.
// Field presence and email shape are checked; no credential verification
// happens anywhere in this layer.
func Login(c *gin.Context) {
	var req LoginRequest
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

	session, err := services.GetSessionService().Login(req.Email, req.Password)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful!",
		"data": gin.H{
			"token": session.Token,
			"user":  session.User,
		},
	})
}

// Register handles POST /api/v1/auth/register - creates a user identity and
// establishes a session, exactly as login does
func Register(c *gin.Context) {
	var req RegisterRequest
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

	session, err := services.GetSessionService().Register(req.Name, req.Email, req.Password)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful!",
		"data": gin.H{
			"token": session.Token,
			"user":  session.User,
		},
	})
}

// Logout handles POST /api/v1/auth/logout - clears the current session and
// its persisted copy. Idempotent.
func Logout(c *gin.Context) {
	services.GetSessionService().Logout()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Me handles GET /api/v1/auth/me - returns the current session user
func Me(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// respondSessionError translates a session store error into the response
// envelope, keeping the store's error code for the client
func respondSessionError(c *gin.Context, err error) {
	var sessionErr *services.SessionError
	if errors.As(err, &sessionErr) {
		status := http.StatusBadRequest
		if sessionErr.Code == "SESSION_PERSIST_ERROR" {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    sessionErr.Code,
				"message": sessionErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "SESSION_ERROR",
			"message": "Login failed. Please try again.",
		},
	})
}
