package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Placeholder endpoints behind the protected prefix

func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "hello"})
}

func Search(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": []string{}})
}

func Export(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}
