package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/garage/internal/store"
	"github.com/zulandar/garage/internal/uploads"
)

// maxUploadBody caps the JSON upload request body at the transport layer.
// Base64 inflates the payload by 4/3, so the cap sits above the decoded
// ceiling; the ingestion service enforces the exact limit.
const maxUploadBody = uploads.MaxBytes + uploads.MaxBytes/2

func handleList(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := st.List()
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func handleCreate(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec store.Record
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		created, err := st.Create(rec)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func handleUpdate(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec store.Record
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		updated, err := st.Update(c.Param("id"), rec)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// handleDelete shares the delete logic between the DELETE route and its POST
// fallback; only the success response differs.
func handleDelete(st *store.Store, respond gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Delete(c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		respond(c)
	}
}

type uploadRequest struct {
	Image    string `json:"image"`
	FileName string `json:"fileName"`
}

func handleUpload(up *uploads.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

		var req uploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds size limit"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		ref, err := up.SaveDataURI(req.Image, req.FileName)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"imageUrl": ref})
	}
}

func handleUploadFile(up *uploads.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		f, err := fh.Open()
		if err != nil {
			writeError(c, err)
			return
		}
		defer f.Close()

		ref, err := up.SaveFile(fh.Filename, fh.Size, f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"imageUrl": ref})
	}
}

// writeError maps core error kinds to status codes. Unrecognized errors are
// storage or IO failures and surface as a generic 500; internal detail never
// reaches the response.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "id already exists"})
	case errors.Is(err, store.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": store.ErrInvalid.Error()})
	case errors.Is(err, uploads.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": uploads.ErrMissingField.Error()})
	case errors.Is(err, uploads.ErrBadEncoding):
		c.JSON(http.StatusBadRequest, gin.H{"error": uploads.ErrBadEncoding.Error()})
	case errors.Is(err, uploads.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": uploads.ErrTooLarge.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
