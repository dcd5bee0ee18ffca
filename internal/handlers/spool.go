package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/services"
)

type SpoolHandler struct {
	spoolService services.SpoolService
}

func NewSpoolHandler(spoolService services.SpoolService) *SpoolHandler {
	return &SpoolHandler{spoolService: spoolService}
}

func (sh *SpoolHandler) Create(c *gin.Context) {
	var input services.SpoolCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	spool, err := sh.spoolService.Create(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, spool)
}

func (sh *SpoolHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	spool, err := sh.spoolService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, spool)
}

func (sh *SpoolHandler) List(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	filamentID, err := queryInt(c, "filament_id")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	vendorID, err := queryInt(c, "vendor_id")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	allowArchived, err := queryBool(c, "allow_archived")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	filter := repos.SpoolFilter{
		FilamentID:    filamentID,
		Name:          queryString(c, "filament_name"),
		Material:      queryString(c, "material"),
		VendorID:      vendorID,
		VendorName:    queryString(c, "vendor_name"),
		Location:      queryString(c, "location"),
		LotNr:         queryString(c, "lot_nr"),
		AllowArchived: allowArchived,
	}
	spools, total, err := sh.spoolService.Find(c.Request.Context(), filter, c.Query("sort"), page)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondList(c, spools, total)
}

func (sh *SpoolHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch services.SpoolPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	spool, err := sh.spoolService.Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, spool)
}

func (sh *SpoolHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	spool, err := sh.spoolService.Delete(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, spool)
}

type useRequest struct {
	UseWeight *float64 `json:"use_weight"`
	UseLength *float64 `json:"use_length"`
}

// Use consumes filament by exactly one of weight (grams) or length (mm).
func (sh *SpoolHandler) Use(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req useRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if (req.UseWeight == nil) == (req.UseLength == nil) {
		RespondServiceError(c, apierr.InvalidArgument("exactly one of use_weight and use_length is required"))
		return
	}

	var (
		spool interface{}
		err   error
	)
	if req.UseWeight != nil {
		spool, err = sh.spoolService.UseByWeight(c.Request.Context(), id, *req.UseWeight)
	} else {
		spool, err = sh.spoolService.UseByLength(c.Request.Context(), id, *req.UseLength)
	}
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, spool)
}

type measureRequest struct {
	Weight *float64 `json:"weight" binding:"required"`
}

// Measure reconciles the spool against a gross weight from a scale.
func (sh *SpoolHandler) Measure(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req measureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	spool, err := sh.spoolService.Measure(c.Request.Context(), id, *req.Weight)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, spool)
}
