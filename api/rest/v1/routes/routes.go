package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nick/por-s3/api/rest/server"
	v1 "github.com/nick/por-s3/api/rest/v1"
	"github.com/nick/por-s3/api/rest/v1/handlers"
)

func eventRoutes(server *server.Server, router gin.IRoutes) {
	eventHandler := handlers.NewEventHandler(server.Launcher)
	router.POST("/events", v1.ErrorHandler(eventHandler.HandleEvent))
}

func runRoutes(server *server.Server, router gin.IRoutes) {
	runHandler := handlers.NewRunHandler(server.Runs)
	router.GET("/runs", v1.ErrorHandler(runHandler.ListRuns))
	router.PATCH("/runs/:id", v1.ErrorHandler(runHandler.UpdateRunState))
}

func RegisterRoutes(server *server.Server) {
	server.Engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiv1 := server.Engine.Group("/api/v1")
	eventRoutes(server, apiv1)
	runRoutes(server, apiv1)
}
