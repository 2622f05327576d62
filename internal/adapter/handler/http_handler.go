package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Selvababu93/realtime-inventory/internal/core/service"
)

type HTTPHandler struct {
	inventory *service.InventoryService
}

type createItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func NewHTTPHandler(inventory *service.InventoryService) *HTTPHandler {
	return &HTTPHandler{inventory: inventory}
}

// Routes assembles the full HTTP surface: CRUD, the event transport,
// health, and the static page.
func (h *HTTPHandler) Routes(gw *Gateway) http.Handler {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	engine.GET("/health", h.health)
	engine.GET("/api/inventory", h.list)
	engine.POST("/api/inventory", h.create)
	engine.PUT("/api/inventory/:id", h.update)
	engine.DELETE("/api/inventory/:id", h.delete)
	engine.GET("/ws", gw.HandleWS)
	engine.StaticFile("/", "./static/index.html")

	return engine
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) list(c *gin.Context) {
	items, err := h.inventory.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *HTTPHandler) create(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	it, err := h.inventory.Create(c.Request.Context(), req.Name, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *HTTPHandler) update(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	it, err := h.inventory.UpdateQuantity(c.Request.Context(), id, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	if _, err := h.inventory.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid item id"})
		return 0, false
	}
	return id, true
}

// fail maps service errors onto the wire error shape {detail: string}.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Item not found"})
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}
