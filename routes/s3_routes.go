package routes

import (
	"github.com/gorilla/mux"

	"vibin_matchcore/controllers"
)

// RegisterS3Routes sets up presigned URL routes under /media
func RegisterS3Routes(r *mux.Router, store controllers.MediaSigner) {
	controller := controllers.NewMediaController(store)

	r.HandleFunc("/media/upload-url", controller.UploadURL).Methods("POST")
	r.HandleFunc("/media/read-url", controller.ReadURL).Methods("POST")
}
