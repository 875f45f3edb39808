package routes

import (
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/louayabidi/projetstage-devops/services"
	"github.com/louayabidi/projetstage-devops/utils"
)

// PostMessage appends a chat message to a booking thread. Only the two
// parties of the booking may write to it.
func PostMessage(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		var input PostMessageInput
		if readErr := ctx.ReadJSON(&input); readErr != nil {
			utils.HandleValidationErrors(readErr, ctx)
			return
		}

		message, svcErr := booking.PostMessage(claims.ID, bookingID, input.Content)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(message)
	}
}

// ListMessages returns a booking's thread in chronological order.
func ListMessages(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		messages, svcErr := booking.ListMessages(claims.ID, bookingID)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(messages)
	}
}

type PostMessageInput struct {
	Content string `json:"content" validate:"required,max=4096"`
}
