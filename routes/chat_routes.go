package routes

import (
	"github.com/gorilla/mux"

	"vibin_matchcore/controllers"
	"vibin_matchcore/services"
)

// RegisterChatRoutes sets up chat routes under /chats
func RegisterChatRoutes(r *mux.Router, chatService *services.ChatService, messageService *services.MessageService) {
	controller := controllers.NewChatController(chatService, messageService)

	chatRouter := r.PathPrefix("/chats").Subrouter()

	chatRouter.HandleFunc("", controller.GetOrCreate).Methods("POST")
	chatRouter.HandleFunc("", controller.ListChats).Methods("GET")
	chatRouter.HandleFunc("/{chatId}", controller.GetChat).Methods("GET")
	chatRouter.HandleFunc("/{chatId}", controller.DeleteChat).Methods("DELETE")
	chatRouter.HandleFunc("/{chatId}/settings", controller.UpdateSettings).Methods("PATCH")
	chatRouter.HandleFunc("/{chatId}/read", controller.MarkRead).Methods("POST")
	chatRouter.HandleFunc("/{chatId}/messages", controller.ListMessages).Methods("GET")
	chatRouter.HandleFunc("/{chatId}/messages", controller.SendMessage).Methods("POST")
}
