package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const languageKeyPrefix = "inks-language"

var supportedLanguages = map[string]bool{
	"es": true,
	"en": true,
}

const defaultLanguage = "es"

type languagePreferenceRequest struct {
	Language string `json:"language" binding:"required"`
}

// GetLanguage 返回当前身份保存的界面语言，未保存时回退到默认语言。
func (h *HTTPHandler) GetLanguage(c *gin.Context) {
	id := requestIdentity(c)
	if !id.Valid() {
		BadRequest(c, ErrCodeInvalidRequest, "missing guest key for anonymous request")
		return
	}

	language := defaultLanguage
	value, ok, err := h.preferences.Get(languageStoreKey(id.UserID, id.GuestKey))
	if err != nil {
		logrus.WithError(err).Warn("failed to read language preference")
	} else if ok && supportedLanguages[strings.TrimSpace(value)] {
		language = strings.TrimSpace(value)
	}

	c.JSON(http.StatusOK, gin.H{"language": language})
}

// PutLanguage 保存当前身份的界面语言。
func (h *HTTPHandler) PutLanguage(c *gin.Context) {
	id := requestIdentity(c)
	if !id.Valid() {
		BadRequest(c, ErrCodeInvalidRequest, "missing guest key for anonymous request")
		return
	}

	var req languagePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if !supportedLanguages[language] {
		BadRequest(c, ErrCodeInvalidRequest, "unsupported language")
		return
	}

	if err := h.preferences.Put(languageStoreKey(id.UserID, id.GuestKey), language); err != nil {
		logrus.WithError(err).Error("failed to save language preference")
		InternalError(c, "failed to save language preference")
		return
	}

	c.JSON(http.StatusOK, gin.H{"language": language})
}

func languageStoreKey(userID uint, guestKey string) string {
	if userID > 0 {
		return fmt.Sprintf("%s-user-%d", languageKeyPrefix, userID)
	}
	return fmt.Sprintf("%s-guest-%s", languageKeyPrefix, guestKey)
}
