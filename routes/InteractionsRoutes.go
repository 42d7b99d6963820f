package routes

import (
	"github.com/gorilla/mux"

	"vibin_matchcore/controllers"
	"vibin_matchcore/services"
)

// RegisterInteractionsRoutes registers like/dislike routes under /interactions
func RegisterInteractionsRoutes(router *mux.Router, interactionService *services.InteractionService) {
	controller := controllers.NewInteractionController(interactionService)

	interactionRouter := router.PathPrefix("/interactions").Subrouter()

	interactionRouter.HandleFunc("/like", controller.Like).Methods("POST")
	interactionRouter.HandleFunc("/dislike", controller.Dislike).Methods("POST")
	interactionRouter.HandleFunc("/received", controller.ListReceived).Methods("GET")
}
