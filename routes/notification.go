package routes

import (
	"time"

	"github.com/kataras/iris/v12"

	"github.com/louayabidi/projetstage-devops/storage"
	"github.com/louayabidi/projetstage-devops/utils"
)

// GetNotifications returns the caller's notifications, newest first,
// paginated.
func GetNotifications(notifications *storage.NotificationRepository) iris.Handler {
	return func(ctx iris.Context) {
		userID := ctx.Values().Get("userID").(uint)

		page := ctx.URLParamIntDefault("page", 1)
		perPage := ctx.URLParamIntDefault("per_page", 50)
		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 50
		}

		rows, total, err := notifications.ListByRecipient(userID, page, perPage)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		utils.JSONPage(ctx, rows, page, perPage, total)
	}
}

func GetUnreadNotificationCount(notifications *storage.NotificationRepository) iris.Handler {
	return func(ctx iris.Context) {
		userID := ctx.Values().Get("userID").(uint)

		count, err := notifications.CountUnread(userID)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(iris.Map{"count": count})
	}
}

func MarkNotificationsRead(notifications *storage.NotificationRepository) iris.Handler {
	return func(ctx iris.Context) {
		userID := ctx.Values().Get("userID").(uint)

		updated, err := notifications.MarkAllRead(userID, time.Now())
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(iris.Map{"success": true, "updated": updated})
	}
}
