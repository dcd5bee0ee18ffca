package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/services"
)

type VendorHandler struct {
	vendorService services.VendorService
}

func NewVendorHandler(vendorService services.VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

func (vh *VendorHandler) Create(c *gin.Context) {
	var input services.VendorCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	vendor, err := vh.vendorService.Create(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, vendor)
}

func (vh *VendorHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	vendor, err := vh.vendorService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, vendor)
}

func (vh *VendorHandler) List(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	filter := repos.VendorFilter{
		Name:       queryString(c, "name"),
		ExternalID: queryString(c, "external_id"),
	}
	vendors, total, err := vh.vendorService.Find(c.Request.Context(), filter, c.Query("sort"), page)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondList(c, vendors, total)
}

func (vh *VendorHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch services.VendorPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	vendor, err := vh.vendorService.Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, vendor)
}

func (vh *VendorHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	vendor, err := vh.vendorService.Delete(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, vendor)
}
