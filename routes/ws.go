package routes

import (
	"github.com/kataras/iris/v12"

	"github.com/louayabidi/projetstage-devops/services"
)

// LiveLocationSocket upgrades the request into the live location hub.
// Authentication happens per frame inside the hub, so the route itself
// is public.
func LiveLocationSocket(hub *services.Hub) iris.Handler {
	return func(ctx iris.Context) {
		hub.Serve(ctx.ResponseWriter(), ctx.Request())
	}
}
