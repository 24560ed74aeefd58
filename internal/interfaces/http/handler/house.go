package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apphouse "github.com/rt44/backend/internal/application/house"
	"github.com/rt44/backend/internal/domain/dues"
)

var csvContentTypes = []string{"text/csv", "text/plain", "application/octet-stream", "application/vnd.ms-excel"}

// HouseHandler handles house registry endpoints
type HouseHandler struct {
	BaseHandler
	houses        *apphouse.HouseService
	imports       *apphouse.ImportService
	maxImportSize int64
}

// NewHouseHandler creates a new HouseHandler
func NewHouseHandler(houses *apphouse.HouseService, imports *apphouse.ImportService, maxImportSize int64) *HouseHandler {
	return &HouseHandler{
		houses:        houses,
		imports:       imports,
		maxImportSize: maxImportSize,
	}
}

// List godoc
// @ID           listHouses
// @Summary      List houses
// @Description  Houses ordered by block and number, with owner and monthly amount
// @Tags         houses
// @Produce      json
// @Param        search query string false "Block, number or owner name"
// @Param        occupancy query string false "occupied or vacant"
// @Param        subsidized query bool false "Only subsidized (true) or only billed (false) houses"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        order_by query string false "Sort field" Enums(block, number, occupancy, is_subsidized, is_connected, created_at, updated_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]apphouse.HouseResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /houses [get]
func (h *HouseHandler) List(c *gin.Context) {
	var q ListHousesQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.houses.List(c.Request.Context(), apphouse.ListFilter{
		Search:     q.Search,
		Occupancy:  dues.Occupancy(q.Occupancy),
		Subsidized: q.Subsidized,
		Page:       q.Page,
		PageSize:   q.PageSize,
		OrderBy:    q.OrderBy,
		OrderDir:   q.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Create godoc
// @ID           createHouse
// @Summary      Register a house
// @Description  Creates the house and, when billable, its due for the current month
// @Tags         houses
// @Accept       json
// @Produce      json
// @Param        request body CreateHouseRequest true "House"
// @Success      201 {object} APIResponse[apphouse.UpdateResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /houses [post]
func (h *HouseHandler) Create(c *gin.Context) {
	var req CreateHouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ownerID, err := optionalUUID(req.OwnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	status := dues.ResidentStatus(req.ResidentStatus)
	if status == "" {
		status = dues.ResidentStatusUnknown
	}

	result, err := h.houses.Create(c.Request.Context(), apphouse.CreateHouseRequest{
		Block:          req.Block,
		Number:         req.Number,
		Occupancy:      dues.Occupancy(req.Occupancy),
		ResidentStatus: status,
		IsSubsidized:   req.IsSubsidized,
		IsConnected:    req.IsConnected,
		MeterCount:     req.MeterCount,
		OwnerID:        ownerID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @ID           getHouse
// @Summary      Get a house
// @Tags         houses
// @Produce      json
// @Param        id path string true "House ID"
// @Success      200 {object} APIResponse[apphouse.HouseResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /houses/{id} [get]
func (h *HouseHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	house, err := h.houses.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, house)
}

// Update godoc
// @ID           updateHouse
// @Summary      Update a house
// @Description  Changes that affect billing recalculate the unpaid dues of the current month
// @Tags         houses
// @Accept       json
// @Produce      json
// @Param        id path string true "House ID"
// @Param        request body UpdateHouseRequest true "Changed fields"
// @Success      200 {object} APIResponse[apphouse.UpdateResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /houses/{id} [put]
func (h *HouseHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateHouseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ownerID, err := optionalUUID(req.OwnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	appReq := apphouse.UpdateHouseRequest{
		Block:        req.Block,
		Number:       req.Number,
		IsSubsidized: req.IsSubsidized,
		IsConnected:  req.IsConnected,
		MeterCount:   req.MeterCount,
		OwnerID:      ownerID,
		ClearOwner:   req.ClearOwner,
	}
	if req.Occupancy != nil {
		occupancy := dues.Occupancy(*req.Occupancy)
		appReq.Occupancy = &occupancy
	}
	if req.ResidentStatus != nil {
		status := dues.ResidentStatus(*req.ResidentStatus)
		appReq.ResidentStatus = &status
	}

	result, err := h.houses.Update(c.Request.Context(), id, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete godoc
// @ID           deleteHouse
// @Summary      Delete a house
// @Description  Removes the house together with its dues and payments
// @Tags         houses
// @Param        id path string true "House ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /houses/{id} [delete]
func (h *HouseHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.houses.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Import godoc
// @ID           importHouses
// @Summary      Import houses from CSV
// @Description  Upserts owners and houses row by row in one transaction. Any invalid row rejects the file.
// @Tags         houses
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Success      200 {object} APIResponse[apphouse.ImportResult]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /houses/import [post]
func (h *HouseHandler) Import(c *gin.Context) {
	file, ok := h.formFile(c, "file", true, h.maxImportSize, csvContentTypes...)
	if !ok {
		return
	}
	defer file.close()

	result, err := h.imports.Import(c.Request.Context(), apphouse.ImportRequest{File: file.file})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Template godoc
// @ID           houseImportTemplate
// @Summary      Download the import template
// @Tags         houses
// @Produce      text/csv
// @Success      200 {file} file
// @Router       /houses/import/template [get]
func (h *HouseHandler) Template(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="template_rumah.csv"`)
	c.Status(http.StatusOK)
	if err := h.imports.Template(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// RegisterRoutes registers the house routes
func (h *HouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	houses := rg.Group("/houses")
	{
		houses.GET("", h.List)
		houses.POST("", h.Create)
		houses.POST("/import", h.Import)
		houses.GET("/import/template", h.Template)
		houses.GET("/:id", h.Get)
		houses.PUT("/:id", h.Update)
		houses.DELETE("/:id", h.Delete)
	}
}
