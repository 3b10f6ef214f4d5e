package docstore

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Tree is the storage the HTTP front needs. SQLiteStore implements it.
type Tree interface {
	Get(ctx context.Context, path string) (interface{}, error)
	Set(ctx context.Context, path string, value interface{}) error
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Push(ctx context.Context, path string, value interface{}) (string, error)
	Remove(ctx context.Context, path string) error
}

// errorResponse is the body sent with every non-2xx answer.
type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves a Tree over the "<path>.json" protocol.
type Handler struct {
	tree      Tree
	authToken string
}

// NewHandler creates a Handler. When authToken is non-empty every request
// must carry it in the "auth" query parameter.
func NewHandler(tree Tree, authToken string) *Handler {
	return &Handler{tree: tree, authToken: authToken}
}

// Router builds the gin engine for the handler.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(h.requireAuth())

	r.GET("/*path", h.get)
	r.PUT("/*path", h.put)
	r.PATCH("/*path", h.patch)
	r.POST("/*path", h.post)
	r.DELETE("/*path", h.delete)

	return r
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.authToken != "" && c.Query("auth") != h.authToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "Permission denied"})
			return
		}
		c.Next()
	}
}

// documentPath strips the ".json" suffix. It reports false for paths that
// do not address a document.
func documentPath(c *gin.Context) (string, bool) {
	p := c.Param("path")
	if !strings.HasSuffix(p, ".json") {
		return "", false
	}
	return strings.Trim(strings.TrimSuffix(p, ".json"), "/"), true
}

func readBody(c *gin.Context) (interface{}, bool) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "could not read body"})
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid data; couldn't parse JSON object"})
		return nil, false
	}
	return v, true
}

func (h *Handler) get(c *gin.Context) {
	path, ok := documentPath(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}

	v, err := h.tree.Get(c.Request.Context(), path)
	if err != nil {
		h.fail(c, "GET", path, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) put(c *gin.Context) {
	path, ok := documentPath(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}
	v, ok := readBody(c)
	if !ok {
		return
	}

	if err := h.tree.Set(c.Request.Context(), path, v); err != nil {
		h.fail(c, "PUT", path, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) patch(c *gin.Context) {
	path, ok := documentPath(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}
	v, ok := readBody(c)
	if !ok {
		return
	}
	fields, isObject := v.(map[string]interface{})
	if !isObject {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid data; PATCH expects an object"})
		return
	}

	if err := h.tree.Update(c.Request.Context(), path, fields); err != nil {
		h.fail(c, "PATCH", path, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *Handler) post(c *gin.Context) {
	path, ok := documentPath(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}
	v, ok := readBody(c)
	if !ok {
		return
	}

	key, err := h.tree.Push(c.Request.Context(), path, v)
	if err != nil {
		h.fail(c, "POST", path, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": key})
}

func (h *Handler) delete(c *gin.Context) {
	path, ok := documentPath(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}

	if err := h.tree.Remove(c.Request.Context(), path); err != nil {
		h.fail(c, "DELETE", path, err)
		return
	}
	c.JSON(http.StatusOK, nil)
}

func (h *Handler) fail(c *gin.Context, method, path string, err error) {
	log.Printf("docstore: %s /%s: %v", method, path, err)
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
