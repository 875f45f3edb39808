package utils

import (
	"net"

	"github.com/kataras/iris/v12"

	"github.com/louayabidi/projetstage-devops/models"
	"github.com/louayabidi/projetstage-devops/storage"
)

// RecordActivity writes an activity log row for account events such as
// sign up, login and password changes.
func RecordActivity(ctx iris.Context, userID uint, action string) {
	entry := models.ActivityLog{
		UserID:    userID,
		Action:    action,
		IPAddress: clientIP(ctx),
		UserAgent: ctx.GetHeader("User-Agent"),
	}
	storage.DB.Create(&entry)
}

func clientIP(ctx iris.Context) string {
	if ip := ctx.GetHeader("X-Forwarded-For"); ip != "" {
		return ip
	}
	ip, _, _ := net.SplitHostPort(ctx.RemoteAddr())
	return ip
}
