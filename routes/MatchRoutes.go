package routes

import (
	"github.com/gorilla/mux"

	"vibin_matchcore/controllers"
	"vibin_matchcore/services"
)

func RegisterMatchRoutes(r *mux.Router, matchService *services.MatchService) {
	controller := controllers.NewMatchController(matchService)

	matchRouter := r.PathPrefix("/matches").Subrouter()
	matchRouter.HandleFunc("", controller.ListMatches).Methods("GET")
	matchRouter.HandleFunc("/unmatch", controller.Unmatch).Methods("POST")
	matchRouter.HandleFunc("/block", controller.Block).Methods("POST")
	matchRouter.HandleFunc("/{matchId}", controller.GetMatch).Methods("GET")
}
