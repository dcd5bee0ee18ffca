package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type InfoHandler struct {
	version string
	dbType  string
}

func NewInfoHandler(version, dbType string) *InfoHandler {
	return &InfoHandler{version: version, dbType: dbType}
}

func (ih *InfoHandler) Info(c *gin.Context) {
	RespondOK(c, gin.H{
		"version":       ih.version,
		"database_type": ih.dbType,
	})
}
