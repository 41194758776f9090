package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"library-ledger/library"
)

// SetupRoutes builds the API engine. middleware runs before authentication;
// every route requires basic auth.
func SetupRoutes(h *Handlers, middleware ...gin.HandlerFunc) *gin.Engine {
	routes := gin.New()
	routes.Use(gin.Recovery())
	routes.Use(middleware...)

	api := routes.Group("/")
	{
		api.Use(h.BasicAuth)

		api.GET("/books", h.ListBooks)
		api.POST("/books", h.CreateBook)
		api.GET("/books/search", h.SearchBooks)
		api.GET("/books/:id", h.GetBook)
		api.PUT("/books/:id", h.UpdateBook)
		api.DELETE("/books/:id", h.DeleteBook)

		api.GET("/users", h.ListUsers)
		api.POST("/users", h.CreateUser)
		api.GET("/users/search", h.SearchUsers)
		api.PUT("/users/:id", h.UpdateUser)
		api.DELETE("/users/:id", h.DeleteUser)

		api.GET("/loans", h.ListLoans)
		api.POST("/loans", h.CreateLoan)
		api.GET("/loans/active", h.ActiveLoans)
		api.GET("/loans/overdue", h.OverdueLoans)
		api.GET("/loans/search", h.SearchLoans)
		api.POST("/loans/:id/return", h.ReturnLoan)
		api.DELETE("/loans/:id", h.DeleteLoan)

		api.GET("/reports", h.Reports)
		api.GET("/events", h.Events)
	}

	return routes
}

// RequestLogger logs one line per request once it has been served.
func RequestLogger(logger library.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
