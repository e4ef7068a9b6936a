package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	deviceRepo "subzero/database/repository/device"
	"subzero/models"
	"subzero/services/device"
	"subzero/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatAdmin is the moderation surface of the chat hub exposed over HTTP.
type ChatAdmin interface {
	ListRestrictions(ctx context.Context) ([]models.ChatRestriction, error)
	ClearHistory(ctx context.Context) (int64, error)
}

// PruneEnqueuer queues a history prune on the background worker.
type PruneEnqueuer interface {
	EnqueuePrune(ctx context.Context, olderThanDays int) (string, error)
}

type AdminHandler struct {
	Users         user.UserService
	Devices       device.RestrictionService
	Chat          ChatAdmin
	Prune         PruneEnqueuer
	RetentionDays int
}

func (h *AdminHandler) internalError(c *gin.Context, msg string, err error) {
	getLogger(c).Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// GET /api/admin/users
func (h *AdminHandler) ListUsersHandler(c *gin.Context) {
	users, err := h.Users.GetAllUsers(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to fetch users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// POST /api/admin/users/:id/ban
func (h *AdminHandler) BanUserHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.setBanned(c, func(ctx context.Context, id string) error {
		return h.Users.BanUser(ctx, id, req.Reason)
	})
}

// POST /api/admin/users/:id/unban
func (h *AdminHandler) UnbanUserHandler(c *gin.Context) {
	h.setBanned(c, h.Users.UnbanUser)
}

func (h *AdminHandler) setBanned(c *gin.Context, apply func(context.Context, string) error) {
	err := apply(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.internalError(c, "Failed to update user", err)
	default:
		c.Status(http.StatusNoContent)
	}
}

// GET /api/admin/devices
func (h *AdminHandler) ListDevicesHandler(c *gin.Context) {
	records, err := h.Devices.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to fetch devices", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// bindOptionalJSON accepts an empty body but rejects a malformed one.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return false
	}
	return true
}

func bindDevice(c *gin.Context) (models.DeviceBlockRequest, bool) {
	var req models.DeviceBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return req, false
	}
	if req.DeviceFingerprint == "" && req.CookieValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": device.ErrMissingIdentifiers.Error()})
		return req, false
	}
	return req, true
}

// POST /api/admin/devices/block
func (h *AdminHandler) BlockDeviceHandler(c *gin.Context) {
	req, ok := bindDevice(c)
	if !ok {
		return
	}
	record, err := h.Devices.Block(c.Request.Context(), req.DeviceFingerprint, req.CookieValue, req.Reason)
	if err != nil {
		h.internalError(c, "Failed to block device", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// POST /api/admin/devices/unblock
func (h *AdminHandler) UnblockDeviceHandler(c *gin.Context) {
	req, ok := bindDevice(c)
	if !ok {
		return
	}
	h.deviceResult(c, h.Devices.Unblock(c.Request.Context(), req.DeviceFingerprint, req.CookieValue), "Failed to unblock device")
}

// PUT /api/admin/devices/:id/limit
func (h *AdminHandler) SetDeviceLimitHandler(c *gin.Context) {
	var req struct {
		MaxAccountsAllowed *int `json:"maxAccountsAllowed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MaxAccountsAllowed == nil || *req.MaxAccountsAllowed < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maxAccountsAllowed must be a non-negative integer"})
		return
	}
	h.deviceResult(c, h.Devices.SetLimit(c.Request.Context(), c.Param("id"), *req.MaxAccountsAllowed), "Failed to update device limit")
}

// DELETE /api/admin/devices/:id
func (h *AdminHandler) ResetDeviceHandler(c *gin.Context) {
	h.deviceResult(c, h.Devices.Reset(c.Request.Context(), c.Param("id")), "Failed to reset device")
}

func (h *AdminHandler) deviceResult(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, deviceRepo.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
	case err != nil:
		h.internalError(c, msg, err)
	default:
		c.Status(http.StatusNoContent)
	}
}

// GET /api/admin/chat/restrictions
func (h *AdminHandler) ListChatRestrictionsHandler(c *gin.Context) {
	list, err := h.Chat.ListRestrictions(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to fetch restrictions", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DELETE /api/admin/chat/messages
func (h *AdminHandler) ClearChatHandler(c *gin.Context) {
	n, err := h.Chat.ClearHistory(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to clear chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// POST /api/admin/chat/prune
func (h *AdminHandler) PruneChatHandler(c *gin.Context) {
	var req struct {
		OlderThanDays int `json:"olderThanDays"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.OlderThanDays == 0 {
		req.OlderThanDays = h.RetentionDays
	}
	if req.OlderThanDays <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "olderThanDays must be positive"})
		return
	}
	id, err := h.Prune.EnqueuePrune(c.Request.Context(), req.OlderThanDays)
	if err != nil {
		h.internalError(c, "Failed to enqueue prune", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": id, "olderThanDays": req.OlderThanDays})
}
