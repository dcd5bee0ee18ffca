package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/repos"
	"github.com/spooldock/spooldock/internal/services"
)

type FilamentHandler struct {
	filamentService services.FilamentService
}

func NewFilamentHandler(filamentService services.FilamentService) *FilamentHandler {
	return &FilamentHandler{filamentService: filamentService}
}

func (fh *FilamentHandler) Create(c *gin.Context) {
	var input services.FilamentCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	filament, err := fh.filamentService.Create(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, filament)
}

func (fh *FilamentHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	filament, err := fh.filamentService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, filament)
}

func (fh *FilamentHandler) List(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	vendorID, err := queryInt(c, "vendor_id")
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	filter := repos.FilamentFilter{
		Name:          queryString(c, "name"),
		Material:      queryString(c, "material"),
		ArticleNumber: queryString(c, "article_number"),
		VendorID:      vendorID,
		VendorName:    queryString(c, "vendor_name"),
		ExternalID:    queryString(c, "external_id"),
	}
	filaments, total, err := fh.filamentService.Find(c.Request.Context(), filter, c.Query("sort"), page)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondList(c, filaments, total)
}

func (fh *FilamentHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch services.FilamentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	filament, err := fh.filamentService.Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, filament)
}

func (fh *FilamentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	filament, err := fh.filamentService.Delete(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, filament)
}
