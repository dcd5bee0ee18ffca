package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/services"
)

type SettingHandler struct {
	settingService services.SettingService
}

func NewSettingHandler(settingService services.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

func (sh *SettingHandler) GetAll(c *gin.Context) {
	settings, err := sh.settingService.GetAll(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, settings)
}

func (sh *SettingHandler) Get(c *gin.Context) {
	setting, err := sh.settingService.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, setting)
}

// Set stores the raw request body as the setting's JSON value; the service
// validates the shape against the registry.
func (sh *SettingHandler) Set(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		RespondServiceError(c, apierr.InvalidArgument("could not read request body: %v", err))
		return
	}
	setting, err := sh.settingService.Set(c.Request.Context(), c.Param("key"), string(raw))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, setting)
}

func (sh *SettingHandler) Unset(c *gin.Context) {
	setting, err := sh.settingService.Unset(c.Request.Context(), c.Param("key"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, setting)
}
