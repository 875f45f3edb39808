package routes

import (
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/louayabidi/projetstage-devops/services"
	"github.com/louayabidi/projetstage-devops/utils"
)

// CreateBooking opens a pending booking and triggers the nearby-owner
// fan-out. Creation never fails on schedule overlap; conflicts are
// checked when an offer is made or accepted.
func CreateBooking(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		var input CreateBookingInput
		err := ctx.ReadJSON(&input)
		if err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}

		created, svcErr := booking.Create(claims.ID, services.CreateBookingInput{
			BoatID:          input.BoatID,
			NumberOfPersons: input.NumberOfPersons,
			HasKids:         input.HasKids,
			PaymentMethod:   input.PaymentMethod,
			DepartureLat:    input.DepartureLat,
			DepartureLng:    input.DepartureLng,
			Destination:     input.Destination,
			NumberOfCabins:  input.NumberOfCabins,
			StartDate:       input.StartDate,
			EndDate:         input.EndDate,
		})
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.StatusCode(iris.StatusCreated)
		ctx.JSON(created)
	}
}

func GetBooking(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		found, svcErr := booking.Get(claims.ID, bookingID)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(found)
	}
}

// ListMyBookings returns the caller's bookings as a passenger.
func ListMyBookings(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookings, err := booking.ListForPassenger(claims.ID)
		if err != nil {
			handleServiceError(err, ctx)
			return
		}

		ctx.JSON(bookings)
	}
}

// ListOwnerBookings returns bookings on the caller's boat plus pending
// requests dispatched to the caller.
func ListOwnerBookings(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookings, err := booking.ListForOwner(claims.ID)
		if err != nil {
			handleServiceError(err, ctx)
			return
		}

		ctx.JSON(bookings)
	}
}

func MakeOffer(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		var input MakeOfferInput
		if readErr := ctx.ReadJSON(&input); readErr != nil {
			utils.HandleValidationErrors(readErr, ctx)
			return
		}

		updated, svcErr := booking.MakeOffer(claims.ID, bookingID, input.Price, input.Message)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(updated)
	}
}

func AcceptOffer(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		updated, svcErr := booking.AcceptOffer(claims.ID, bookingID)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(updated)
	}
}

func RejectOffer(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		updated, svcErr := booking.RejectOffer(claims.ID, bookingID)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(updated)
	}
}

func CancelBooking(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		updated, svcErr := booking.Cancel(claims.ID, bookingID)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(updated)
	}
}

func CompleteBooking(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		updated, svcErr := booking.Complete(claims.ID, bookingID)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(updated)
	}
}

// UpdatePassengerLocation is the REST twin of the websocket passenger
// location event. Only the passenger of a confirmed booking may report.
func UpdatePassengerLocation(booking *services.Booking) iris.Handler {
	return func(ctx iris.Context) {
		claims := jsonWT.Get(ctx).(*utils.AccessToken)

		bookingID, err := ctx.Params().GetUint("id")
		if err != nil {
			utils.CreateNotFound(ctx)
			return
		}

		var input UpdateLocationInput
		if readErr := ctx.ReadJSON(&input); readErr != nil {
			utils.HandleValidationErrors(readErr, ctx)
			return
		}

		updated, svcErr := booking.UpdatePassengerLocation(claims.ID, bookingID, *input.Latitude, *input.Longitude)
		if svcErr != nil {
			handleServiceError(svcErr, ctx)
			return
		}

		ctx.JSON(updated)
	}
}

type CreateBookingInput struct {
	BoatID          uint      `json:"boatID" validate:"required"`
	NumberOfPersons int       `json:"numberOfPersons" validate:"required,min=1"`
	HasKids         bool      `json:"hasKids"`
	PaymentMethod   string    `json:"paymentMethod" validate:"required,max=64"`
	DepartureLat    float64   `json:"departureLat" validate:"min=-90,max=90"`
	DepartureLng    float64   `json:"departureLng" validate:"min=-180,max=180"`
	Destination     string    `json:"destination" validate:"required,max=256"`
	NumberOfCabins  int       `json:"numberOfCabins" validate:"min=0"`
	StartDate       time.Time `json:"startDate" validate:"required"`
	EndDate         time.Time `json:"endDate" validate:"required"`
}

type MakeOfferInput struct {
	Price   float64 `json:"price" validate:"required,gt=0"`
	Message string  `json:"message" validate:"max=1024"`
}
