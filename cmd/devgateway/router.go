package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// newRouter serves the four gateway operations under prefix.
func newRouter(prefix string, fx Fixture, logger *slog.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := engine.Group("/" + strings.Trim(prefix, "/"))
	{
		g.GET("/px", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"proxy": fx.Proxy})
		})
		g.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"version": fx.Version})
		})
		g.GET("/user", func(c *gin.Context) {
			name := c.Query("username")
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
				return
			}
			u := fx.lookup(name)
			c.JSON(http.StatusOK, gin.H{"status": []any{u.Authorized, u.Label, u.Tier}})
		})
		g.GET("/adblock", func(c *gin.Context) {
			c.String(http.StatusOK, fx.Adblock)
		})
	}
	return engine
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery, "status", c.Writer.Status())
	}
}
