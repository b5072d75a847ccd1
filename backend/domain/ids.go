package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a random id used to correlate logs, the proxy journal and the session file.
func NewSessionID() string {
	return uuid.NewString()
}

// AppUserModelID builds the taskbar grouping id for an applied mask.
// 注意：格式与历史版本保持一致（org.title.product.version，全部小写），避免任务栏分组漂移。
func AppUserModelID(orgName, title, appVersion string) string {
	return strings.ToLower(orgName) + "." + strings.ToLower(title) + ".maskbrowser." + appVersion
}
