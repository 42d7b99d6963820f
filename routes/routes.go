package routes

import (
	"time"

	"github.com/gorilla/mux"

	"vibin_matchcore/controllers"
	"vibin_matchcore/services"
)

// Services are the dependencies the HTTP API is built from. Media is
// optional; without it the media routes are not registered.
type Services struct {
	Interactions *services.InteractionService
	Matches      *services.MatchService
	Chats        *services.ChatService
	Messages     *services.MessageService
	Media        controllers.MediaSigner
}

// RegisterRoutes sets up the routes outside /api
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
}

// NewRouter builds the full router. Every /api route runs behind the
// request middleware with the given timeout.
func NewRouter(svc Services, timeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	RegisterRoutes(r)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(controllers.RequestContext(timeout))

	RegisterInteractionsRoutes(api, svc.Interactions)
	RegisterMatchRoutes(api, svc.Matches)
	RegisterChatRoutes(api, svc.Chats, svc.Messages)
	RegisterMessageRoutes(api, svc.Messages)
	if svc.Media != nil {
		RegisterS3Routes(api, svc.Media)
	}
	return r
}
