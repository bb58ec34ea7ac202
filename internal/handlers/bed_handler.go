package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/models"
	"github.com/mghostels/booking-backend/internal/services"
)

// BedHandler handles bed directory and maintenance endpoints
type BedHandler struct {
	bedService *services.BedService
	logger     *logrus.Logger
}

// NewBedHandler creates a new BedHandler
func NewBedHandler(bedService *services.BedService, logger *logrus.Logger) *BedHandler {
	return &BedHandler{
		bedService: bedService,
		logger:     logger,
	}
}

// ListBeds returns a page of beds
// @Summary List beds
// @Tags Beds
// @Produce json
// @Param status query string false "Filter by status"
// @Param limit query int false "Page size (default 100)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /beds [get]
func (h *BedHandler) ListBeds(c *gin.Context) {
	var status *models.BedStatus
	if raw := c.Query("status"); raw != "" {
		s := models.BedStatus(raw)
		switch s {
		case models.BedStatusAvailable, models.BedStatusReserved,
			models.BedStatusOccupied, models.BedStatusMaintenance:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter: " + raw})
			return
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	beds, err := h.bedService.ListBeds(status, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list beds")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list beds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"beds":  beds,
		"count": len(beds),
	})
}

// GetBed returns one bed by id
// @Summary Get bed
// @Tags Beds
// @Produce json
// @Param id path string true "Bed ID"
// @Success 200 {object} models.Bed
// @Failure 404 {object} map[string]interface{} "Bed not found"
// @Router /beds/{id} [get]
func (h *BedHandler) GetBed(c *gin.Context) {
	bed, err := h.bedService.GetBed(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get bed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get bed"})
		return
	}
	if bed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "bed not found"})
		return
	}

	c.JSON(http.StatusOK, bed)
}

// GetRoomAvailability returns per-room bed counts by status
// @Summary Room availability
// @Tags Beds
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /beds/availability [get]
func (h *BedHandler) GetRoomAvailability(c *gin.Context) {
	rooms, err := h.bedService.GetRoomAvailability()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get room availability")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// SetMaintenance moves an available bed into maintenance
// @Summary Set bed maintenance
// @Tags Beds
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Bed ID"
// @Param request body models.SetMaintenanceRequest true "Maintenance reason"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Bed not available"
// @Router /beds/{id}/maintenance [post]
func (h *BedHandler) SetMaintenance(c *gin.Context) {
	var req models.SetMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.bedService.SetMaintenance(c.Param("id"), req.Reason); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bed moved to maintenance"})
}

// ClearMaintenance returns a maintenance bed to available
// @Summary Clear bed maintenance
// @Tags Beds
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Bed ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Bed not in maintenance"
// @Router /beds/{id}/maintenance [delete]
func (h *BedHandler) ClearMaintenance(c *gin.Context) {
	if err := h.bedService.ClearMaintenance(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bed returned to available"})
}
