package controllers

import (
	"context"
	"errors"
	"net/http"

	"vibin_matchcore/helpers"
	"vibin_matchcore/logging"
	"vibin_matchcore/media"
)

// MediaSigner issues presigned URLs for chat attachments.
type MediaSigner interface {
	UploadURL(ctx context.Context, fileName, contentType string) (*media.Upload, error)
	ReadURL(ctx context.Context, key string) (string, error)
}

// MediaController hands out presigned S3 URLs
type MediaController struct {
	Store MediaSigner
}

func NewMediaController(store MediaSigner) *MediaController {
	return &MediaController{Store: store}
}

type uploadRequest struct {
	FileName string `json:"fileName" validate:"required"`
	FileType string `json:"fileType" validate:"required"`
}

type readRequest struct {
	Key string `json:"key" validate:"required"`
}

// UploadURL generates a presigned URL for uploading an attachment
func (mc *MediaController) UploadURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	var req uploadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upload, err := mc.Store.UploadURL(r.Context(), req.FileName, req.FileType)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("key", upload.Key).Msg("upload url issued")
	helpers.WriteJSONResponse(w, http.StatusOK, upload)
}

// ReadURL generates a presigned URL for reading an attachment
func (mc *MediaController) ReadURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	var req readRequest
	if !decodeBody(w, r, &req) {
		return
	}

	url, err := mc.Store.ReadURL(r.Context(), req.Key)
	if errors.Is(err, media.ErrForeignKey) {
		helpers.WriteJSONResponse(w, http.StatusBadRequest, helpers.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url, "key": req.Key})
}
