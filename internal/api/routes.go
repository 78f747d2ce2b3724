package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/garage/internal/store"
	"github.com/zulandar/garage/internal/uploads"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, st *store.Store, up *uploads.Service) {
	// Stored images, served byte-identical by reference path. Unknown
	// filenames 404.
	router.Static("/uploads", up.Dir())

	api := router.Group("/api")
	api.GET("/motorcycles", handleList(st))
	api.POST("/motorcycles", handleCreate(st))
	api.PUT("/motorcycles/:id", handleUpdate(st))

	// Two routes, one delete operation. The POST variant routes around
	// environments that restrict the DELETE verb; semantics are identical.
	api.DELETE("/motorcycles/:id", handleDelete(st, respondDeleted))
	api.POST("/motorcycles/:id/delete", handleDelete(st, respondDeletedJSON))

	api.POST("/upload", handleUpload(up))
	api.POST("/upload/file", handleUploadFile(up))
}

func respondDeleted(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respondDeletedJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
