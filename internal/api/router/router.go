package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/luxserv365/guest-concierge/internal/api/handlers/admin"
	"github.com/luxserv365/guest-concierge/internal/api/handlers/booking"
	"github.com/luxserv365/guest-concierge/internal/api/handlers/guest"
	"github.com/luxserv365/guest-concierge/internal/middlewares"
)

func New(guestH *guest.Handler, adminH *admin.Handler, bookingH *booking.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	{
		api.POST("/guest-requests", guestH.Submit)
		api.GET("/guest-requests/:confirmation", guestH.Lookup)
		api.GET("/guest-requests/:confirmation/status", guestH.Status)
		api.GET("/guest-photos/:filename", guestH.Photo)

		api.POST("/webhooks/bookings", bookingH.Webhook)

		adm := api.Group("/admin")
		{
			adm.POST("/login", adminH.Login)
			adm.GET("/guest-requests", adminH.List)
			adm.PUT("/guest-requests", adminH.BulkUpdate)
			adm.PUT("/guest-requests/:id", adminH.Update)
			adm.POST("/guest-requests/reply", adminH.Reply)
			adm.GET("/analytics", adminH.Analytics)
		}
	}

	return e
}
