package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	domainerrors "magnify-lend.backend/internal/domain/errors"
	"magnify-lend.backend/internal/interfaces/http/response"
)

const WebAppUserKey = "webapp_user"

// WebAppUser is the authenticated Telegram user carried in web app init data
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// VerifyInitData checks the Telegram web app signature over init data: the
// hash field must equal HMAC-SHA256 of the sorted key=value lines, keyed by
// HMAC-SHA256("WebAppData", botToken).
func VerifyInitData(initData, botToken string) bool {
	params, err := url.ParseQuery(initData)
	if err != nil {
		return false
	}
	hash := params.Get("hash")
	if hash == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+params.Get(k))
	}
	dataCheckString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))

	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(hash))
}

// ParseWebAppUser extracts the user object from init data
func ParseWebAppUser(initData string) (*WebAppUser, error) {
	params, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}
	raw := params.Get("user")
	if raw == "" {
		return nil, nil
	}
	var user WebAppUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// InitDataAuthMiddleware authenticates Telegram web app requests by their
// init-data header and exposes the verified user on the gin context.
func InitDataAuthMiddleware(botToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		initData := c.GetHeader("init-data")

		if !VerifyInitData(initData, botToken) {
			response.Error(c, domainerrors.Unauthorized("invalid init data"))
			c.Abort()
			return
		}

		user, err := ParseWebAppUser(initData)
		if err != nil || user == nil {
			response.Error(c, domainerrors.Unauthorized("missing web app user"))
			c.Abort()
			return
		}

		c.Set(WebAppUserKey, user)
		c.Next()
	}
}
