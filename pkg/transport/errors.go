package transport

import (
	"errors"
	"strings"

	"github.com/mymmrac/telego/telegoapi"
)

func apiDescription(err error) (string, int) {
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Description, apiErr.ErrorCode
	}
	if err != nil {
		return err.Error(), 0
	}
	return "", 0
}

// IsThreadNotFound reports whether err means the target discussion
// thread no longer exists. This is the recoverable condition that
// triggers the recreate-and-retry protocol.
func IsThreadNotFound(err error) bool {
	desc, _ := apiDescription(err)
	return strings.Contains(desc, "message thread not found")
}

// IsBlockedByUser reports whether err means the recipient blocked the
// bot.
func IsBlockedByUser(err error) bool {
	desc, _ := apiDescription(err)
	return strings.Contains(desc, "blocked")
}

// IsUnauthorized reports whether err means the credential was revoked.
func IsUnauthorized(err error) bool {
	desc, code := apiDescription(err)
	return code == 401 || strings.Contains(desc, "Unauthorized")
}

// IsChatNotFound reports whether err means the target chat is gone,
// e.g. the operator group was deleted.
func IsChatNotFound(err error) bool {
	desc, _ := apiDescription(err)
	return strings.Contains(desc, "chat not found")
}
