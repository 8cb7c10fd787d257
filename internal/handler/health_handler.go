package handler

import (
	"net/http"

	"github.com/eaglebank/accounts/shared/middleware"
	"github.com/gin-gonic/gin"
)

func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Account Service"})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// NoRoute answers paths no route matches.
func NoRoute(c *gin.Context) {
	middleware.RespondWithError(c, http.StatusNotFound, "Not found")
}

// NoMethod answers a known path requested with an unsupported verb.
func NoMethod(c *gin.Context) {
	middleware.RespondWithError(c, http.StatusMethodNotAllowed, "Method not allowed")
}
