package httpHandler

import (
	"net/http"
	"strconv"

	"smartbin-server/entities"
	"smartbin-server/usecases"

	"github.com/gin-gonic/gin"
)

type DustbinHandler struct {
	useCase *usecases.DustbinUseCase
}

func NewDustbinHandler(useCase *usecases.DustbinUseCase) *DustbinHandler {
	return &DustbinHandler{useCase: useCase}
}

// CreateDustbin handles POST /api/v1/dustbins. The response carries the
// device credentials exactly once; they are never serialized again.
func (h *DustbinHandler) CreateDustbin(c *gin.Context) {
	var bin entities.Dustbin

	if err := c.ShouldBindJSON(&bin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	credentials, err := h.useCase.CreateDustbin(c.Request.Context(), &bin)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Dustbin registered successfully",
		"data":        bin,
		"credentials": credentials,
	})
}

// GetDustbin handles GET /api/v1/dustbins/:id
func (h *DustbinHandler) GetDustbin(c *gin.Context) {
	id := c.Param("id")

	bin, err := h.useCase.GetDustbin(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Dustbin not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": bin,
	})
}

// GetAllDustbins handles GET /api/v1/dustbins — each bin joined with its
// latest fill level, the shape the dashboard list and map render.
func (h *DustbinHandler) GetAllDustbins(c *gin.Context) {
	statuses, err := h.useCase.GetDustbinStatuses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve dustbins",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  statuses,
		"count": len(statuses),
	})
}

// UpdateDustbin handles PUT /api/v1/dustbins/:id
func (h *DustbinHandler) UpdateDustbin(c *gin.Context) {
	id := c.Param("id")

	var bin entities.Dustbin
	if err := c.ShouldBindJSON(&bin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bin.ID = id

	if err := h.useCase.UpdateDustbin(c.Request.Context(), &bin); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dustbin updated successfully",
	})
}

// DeleteDustbin handles DELETE /api/v1/dustbins/:id
func (h *DustbinHandler) DeleteDustbin(c *gin.Context) {
	id := c.Param("id")

	if err := h.useCase.DeleteDustbin(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dustbin deleted successfully",
	})
}

// GetDustbinReadings handles GET /api/v1/dustbins/:id/readings?limit=N
func (h *DustbinHandler) GetDustbinReadings(c *gin.Context) {
	id := c.Param("id")
	limit := queryLimit(c, 100)

	readings, err := h.useCase.GetReadings(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Dustbin not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  readings,
		"count": len(readings),
	})
}

// GetDustbinLogs handles GET /api/v1/dustbins/:id/logs?limit=N — the audit
// trail, including rejected-signature attempts.
func (h *DustbinHandler) GetDustbinLogs(c *gin.Context) {
	id := c.Param("id")
	limit := queryLimit(c, 100)

	logs, err := h.useCase.GetDeviceLogs(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Dustbin not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"count": len(logs),
	})
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
