package routes

import (
	"github.com/gorilla/mux"

	"vibin_matchcore/controllers"
	"vibin_matchcore/services"
)

// RegisterMessageRoutes sets up single-message routes under /messages
func RegisterMessageRoutes(r *mux.Router, messageService *services.MessageService) {
	controller := controllers.NewMessageController(messageService)

	messageRouter := r.PathPrefix("/messages/{messageId}").Subrouter()

	messageRouter.HandleFunc("", controller.Edit).Methods("PATCH")
	messageRouter.HandleFunc("", controller.Delete).Methods("DELETE")
	messageRouter.HandleFunc("/reaction", controller.React).Methods("PUT")
	messageRouter.HandleFunc("/reaction", controller.Unreact).Methods("DELETE")
	messageRouter.HandleFunc("/forward", controller.Forward).Methods("POST")
	messageRouter.HandleFunc("/view", controller.View).Methods("POST")
}
