package routes

import (
	"log"

	"github.com/kataras/iris/v12"

	"github.com/louayabidi/projetstage-devops/services"
	"github.com/louayabidi/projetstage-devops/utils"
)

var serviceErrorStatus = map[services.Kind]int{
	services.KindValidation:   iris.StatusBadRequest,
	services.KindUnauthorized: iris.StatusForbidden,
	services.KindInvalidState: iris.StatusBadRequest,
	services.KindConflict:     iris.StatusConflict,
	services.KindNotFound:     iris.StatusNotFound,
}

// handleServiceError writes a service error with its stable
// machine-readable kind, falling back to a 500 for anything unexpected.
func handleServiceError(err error, ctx iris.Context) {
	kind := services.KindOf(err)
	status, ok := serviceErrorStatus[kind]
	if !ok {
		log.Printf("Unexpected error: %v", err)
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONError(ctx, status, string(kind), err.Error())
}
