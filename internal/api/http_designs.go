package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"inkside/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GenerateDesign 处理一次主图生成请求（登录用户或访客均可调用）。
func (h *HTTPHandler) GenerateDesign(c *gin.Context) {
	var req entity.DesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	id := requestIdentity(c)
	if !id.Valid() {
		BadRequest(c, ErrCodeInvalidRequest, "missing guest key for anonymous request")
		return
	}

	resp, err := h.generationService.Generate(c.Request.Context(), id, req)
	if err != nil {
		RespondServiceError(c, err, id.IsGuest())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GenerateDerivative 基于现有主图生成派生图，不消耗余额。
func (h *HTTPHandler) GenerateDerivative(c *gin.Context) {
	var req entity.DerivativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	resp, err := h.generationService.Derivative(c.Request.Context(), req)
	if err != nil {
		RespondServiceError(c, err, CurrentUser(c) == nil)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListDesigns 返回当前用户画廊的一页。
func (h *HTTPHandler) ListDesigns(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			BadRequest(c, ErrCodeInvalidRequest, "invalid page number")
			return
		}
		page = parsed
	}

	result, err := h.galleryService.FetchPage(c.Request.Context(), user.ID, page)
	if err != nil {
		RespondServiceError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportDesigns 把当前用户的全部设计打包成 ZIP 下载。
func (h *HTTPHandler) ExportDesigns(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	filename := fmt.Sprintf("inkside_designs_%s.zip", time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.galleryService.ExportAll(c.Request.Context(), user.ID, c.Writer); err != nil {
		// 响应头可能已写出，只能记录失败。
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to export designs")
	}
}

// Credits 返回当前身份的剩余生成次数。访客首次查询时初始化额度。
func (h *HTTPHandler) Credits(c *gin.Context) {
	id := requestIdentity(c)
	if !id.Valid() {
		BadRequest(c, ErrCodeInvalidRequest, "missing guest key for anonymous request")
		return
	}

	balance, err := h.creditLedger.Balance(c.Request.Context(), id)
	if err != nil {
		logrus.WithError(err).Error("failed to load credit balance")
		InternalError(c, "failed to load credits")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits": balance,
		"guest":   id.IsGuest(),
	})
}
