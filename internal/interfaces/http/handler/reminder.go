package handler

import (
	"github.com/gin-gonic/gin"
	appreminder "github.com/rt44/backend/internal/application/reminder"
	"github.com/rt44/backend/internal/domain/shared"
)

// AutoReminderRequest turns the daily reminder run on or off
// @Description Request body for the auto reminder setting
type AutoReminderRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"true"`
}

// ReminderHandler handles WhatsApp reminder endpoints and their settings
type ReminderHandler struct {
	BaseHandler
	reminders *appreminder.ReminderService
	clock     shared.Clock
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(reminders *appreminder.ReminderService, clock shared.Clock) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, clock: clock}
}

// Preview godoc
// @ID           previewReminder
// @Summary      Preview a house reminder
// @Tags         reminders
// @Produce      json
// @Param        id path string true "House ID"
// @Param        year query int false "Year, defaults to this year"
// @Success      200 {object} APIResponse[appreminder.ReminderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /reminders/houses/{id} [get]
func (h *ReminderHandler) Preview(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	year, ok := h.parseYear(c, h.clock.Now().Year())
	if !ok {
		return
	}
	resp, err := h.reminders.Preview(c.Request.Context(), id, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Send godoc
// @ID           sendReminder
// @Summary      Send a house reminder
// @Description  Sends the outstanding dues of the year to the owner's WhatsApp
// @Tags         reminders
// @Produce      json
// @Param        id path string true "House ID"
// @Param        year query int false "Year, defaults to this year"
// @Success      200 {object} APIResponse[appreminder.ReminderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Router       /reminders/houses/{id} [post]
func (h *ReminderHandler) Send(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	year, ok := h.parseYear(c, h.clock.Now().Year())
	if !ok {
		return
	}
	resp, err := h.reminders.SendForHouse(c.Request.Context(), id, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RunAuto godoc
// @ID           runAutoReminders
// @Summary      Run the automatic reminders now
// @Description  Does nothing while the auto reminder setting is off. A house is reminded at most once a day.
// @Tags         reminders
// @Produce      json
// @Success      200 {object} APIResponse[appreminder.AutoRunResult]
// @Router       /reminders/auto [post]
func (h *ReminderHandler) RunAuto(c *gin.Context) {
	result, err := h.reminders.SendAuto(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetAutoReminder godoc
// @ID           getAutoReminder
// @Summary      Auto reminder setting
// @Tags         settings
// @Produce      json
// @Success      200 {object} APIResponse[appreminder.SettingsResponse]
// @Router       /settings/auto-reminder [get]
func (h *ReminderHandler) GetAutoReminder(c *gin.Context) {
	settings, err := h.reminders.GetSettings(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// SetAutoReminder godoc
// @ID           setAutoReminder
// @Summary      Turn the auto reminder on or off
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request body AutoReminderRequest true "Setting"
// @Success      200 {object} APIResponse[appreminder.SettingsResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /settings/auto-reminder [put]
func (h *ReminderHandler) SetAutoReminder(c *gin.Context) {
	var req AutoReminderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	settings, err := h.reminders.SetAutoReminder(c.Request.Context(), *req.Enabled)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// RegisterRoutes registers the reminder and settings routes
func (h *ReminderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	r := rg.Group("/reminders")
	{
		r.GET("/houses/:id", h.Preview)
		r.POST("/houses/:id", h.Send)
		r.POST("/auto", h.RunAuto)
	}
	s := rg.Group("/settings")
	{
		s.GET("/auto-reminder", h.GetAutoReminder)
		s.PUT("/auto-reminder", h.SetAutoReminder)
	}
}
