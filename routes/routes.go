package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/matchgrid/matchgrid/handlers"
	"github.com/matchgrid/matchgrid/middleware"
)

// SetupRoutes mounts every HTTP and websocket endpoint on the router.
// Reads are public; anything that mutates state sits behind Authenticate.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	eventHandler *handlers.EventHandler,
	matchHandler *handlers.MatchHandler,
	standingsHandler *handlers.StandingsHandler,
	bookingHandler *handlers.BookingHandler,
	sportHandler *handlers.SportHandler,
	fieldHandler *handlers.FieldHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/sports", func(r chi.Router) {
		r.Get("/", sportHandler.List)
		r.Get("/{sportID}", sportHandler.GetByID)
		r.Get("/{sportID}/profiles", sportHandler.ListProfiles)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", sportHandler.Create)
			r.Put("/{sportID}", sportHandler.Update)
			r.Put("/{sportID}/photo", sportHandler.UploadPhoto)
			r.Delete("/{sportID}", sportHandler.Delete)
			r.Post("/{sportID}/profiles", sportHandler.CreateProfile)
		})
	})

	router.Route("/profiles", func(r chi.Router) {
		r.Get("/{profileID}", sportHandler.GetProfile)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Put("/{profileID}", sportHandler.UpdateProfile)
			r.Delete("/{profileID}", sportHandler.DeleteProfile)
		})
	})

	router.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.List)
		r.Get("/{eventID}", eventHandler.GetByID)
		r.Get("/{eventID}/matches", matchHandler.ListByEvent)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", eventHandler.Create)
			r.Patch("/{eventID}", eventHandler.Update)
			r.Put("/{eventID}/status", eventHandler.UpdateStatus)
			r.Put("/{eventID}/photo", eventHandler.UploadPhoto)
			r.Delete("/{eventID}", eventHandler.Delete)

			r.Post("/{eventID}/divisions", eventHandler.CreateDivision)
			r.Put("/{eventID}/divisions/{divisionID}", eventHandler.UpdateDivision)
			r.Delete("/{eventID}/divisions/{divisionID}", eventHandler.DeleteDivision)
			r.Post("/{eventID}/divisions/{divisionID}/bracket", matchHandler.GenerateBracket)

			r.Post("/{eventID}/teams", eventHandler.CreateTeam)
			r.Put("/{eventID}/teams/{teamID}", eventHandler.UpdateTeam)
			r.Delete("/{eventID}/teams/{teamID}", eventHandler.DeleteTeam)

			r.Post("/{eventID}/matches/bulk", matchHandler.BulkMutate)
		})
	})

	router.Get("/matches/{matchID}", matchHandler.GetByID)

	router.Route("/divisions/{divisionID}/standings", func(r chi.Router) {
		r.Get("/", standingsHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Patch("/", standingsHandler.Patch)
			r.Post("/confirm", standingsHandler.Confirm)
		})
	})

	router.Route("/fields", func(r chi.Router) {
		r.Get("/{fieldID}", fieldHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", fieldHandler.Create)
			r.Put("/{fieldID}", fieldHandler.Update)
			r.Put("/{fieldID}/photo", fieldHandler.UploadPhoto)
			r.Delete("/{fieldID}", fieldHandler.Delete)
			r.Post("/{fieldID}/slots", fieldHandler.AddTimeSlot)
			r.Delete("/{fieldID}/slots/{slotID}", fieldHandler.RemoveTimeSlot)
		})
	})

	router.Get("/organizations/{organizationID}/fields", fieldHandler.ListByOrganization)

	router.Route("/bookings", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/candidates", bookingHandler.Hold)
		r.Put("/candidates/{candidateID}", bookingHandler.Move)
		r.Delete("/candidates/{candidateID}", bookingHandler.Release)
		r.Post("/candidates/{candidateID}/commit", bookingHandler.Commit)

		r.Get("/rentals", bookingHandler.ListRentals)
		r.Delete("/rentals/{rentalID}", bookingHandler.CancelRental)
	})

	router.Get("/ws/events/{eventID}", webSocketHandler.ServeEvent)
	router.Get("/ws/divisions/{divisionID}", webSocketHandler.ServeDivision)
}
