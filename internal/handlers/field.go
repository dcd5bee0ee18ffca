package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/services"
)

type FieldHandler struct {
	fieldService services.ExtraFieldService
}

func NewFieldHandler(fieldService services.ExtraFieldService) *FieldHandler {
	return &FieldHandler{fieldService: fieldService}
}

func (fh *FieldHandler) List(c *gin.Context) {
	entity, err := services.ParseEntityType(c.Param("entity_type"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	fields, err := fh.fieldService.GetFields(c.Request.Context(), nil, entity)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if fields == nil {
		fields = []services.FieldDefinition{}
	}
	RespondOK(c, fields)
}

// AddOrUpdate upserts the definition at the key in the path; a key inside the
// body is overridden by the path.
func (fh *FieldHandler) AddOrUpdate(c *gin.Context) {
	entity, err := services.ParseEntityType(c.Param("entity_type"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	var def services.FieldDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	def.Key = c.Param("key")
	fields, err := fh.fieldService.AddOrUpdateField(c.Request.Context(), entity, def)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, fields)
}

func (fh *FieldHandler) Delete(c *gin.Context) {
	entity, err := services.ParseEntityType(c.Param("entity_type"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := fh.fieldService.DeleteField(c.Request.Context(), entity, c.Param("key")); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
