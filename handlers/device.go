package handlers

import (
	"net/http"

	"subzero/models"
	"subzero/services/device"
	"subzero/services/fingerprint"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	Generator *fingerprint.Generator
	Devices   device.RestrictionService
	Cookies   *device.CookieStore
}

func NewDeviceHandler(gen *fingerprint.Generator, devices device.RestrictionService, cookies *device.CookieStore) *DeviceHandler {
	return &DeviceHandler{Generator: gen, Devices: devices, Cookies: cookies}
}

// FingerprintHandler handles POST /api/device/fingerprint. The probe is what
// the browser reported; missing sections degrade to sentinels.
func (h *DeviceHandler) FingerprintHandler(c *gin.Context) {
	var probe fingerprint.Probe
	if err := c.ShouldBindJSON(&probe); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid probe: " + err.Error()})
		return
	}
	env := fingerprint.NewReportedEnvironment(probe)
	fp := h.Generator.Generate(c.Request.Context(), env)
	if n := env.OpenHandles(); n != 0 {
		getLogger(c).Warn("fingerprint handles left open", zap.Int("open", n))
	}
	c.JSON(http.StatusOK, gin.H{"fingerprint": fp})
}

// CheckHandler handles POST /api/device/check. It never records anything.
func (h *DeviceHandler) CheckHandler(c *gin.Context) {
	var req models.DeviceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.CookieValue == "" {
		req.CookieValue = h.Cookies.GetOrCreateToken(c)
	}
	result, err := h.Devices.Evaluate(c.Request.Context(), req.DeviceFingerprint, req.CookieValue)
	if err != nil {
		getLogger(c).Debug("device check denied", zap.String("reason", result.Reason), zap.Error(err))
	}
	c.JSON(http.StatusOK, result)
}
