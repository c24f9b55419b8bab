package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shahedoge/cofly/internal/store"
)

// maxUploadMemory bounds the in-memory part of multipart parsing;
// larger bodies spill to disk.
const maxUploadMemory = 10 << 20

func (a *API) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		fail(w, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		fail(w, "missing image field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, "reading upload")
		return
	}

	fileName := header.Filename
	if fileName == "" {
		fileName = "image"
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	media := &store.Media{
		UploaderID:  user.ID,
		FileName:    fileName,
		ContentType: contentType,
		MediaType:   "image",
	}
	if err := a.store.CreateMedia(r.Context(), a.blobs, media, data); err != nil {
		a.logger.Error("storing image", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{"image_key": media.ID})
}

func (a *API) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	media, err := a.store.MediaByID(ctx, chi.URLParam(r, "imageKey"), "image")
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "image not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up image", "error", err)
		fail(w, "internal error")
		return
	}
	data, err := a.blobs.Get(ctx, media.ID)
	if err != nil {
		a.logger.Error("reading blob", "error", err)
		fail(w, "internal error")
		return
	}
	w.Header().Set("Content-Type", media.ContentType)
	w.Write(data)
}

func (a *API) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		fail(w, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, "missing file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, "reading upload")
		return
	}

	fileName := r.FormValue("file_name")
	if fileName == "" {
		fileName = header.Filename
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	media := &store.Media{
		UploaderID:  user.ID,
		FileName:    fileName,
		ContentType: contentType,
		MediaType:   "file",
	}
	if err := a.store.CreateMedia(r.Context(), a.blobs, media, data); err != nil {
		a.logger.Error("storing file", "error", err)
		fail(w, "internal error")
		return
	}
	ok(w, map[string]any{"file_key": media.ID})
}

func (a *API) handleDownloadResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := a.store.MessageByID(ctx, chi.URLParam(r, "messageID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(w, "message not found")
			return
		}
		a.logger.Error("looking up message", "error", err)
		fail(w, "internal error")
		return
	}
	media, err := a.store.MediaByID(ctx, chi.URLParam(r, "fileKey"), "")
	if errors.Is(err, store.ErrNotFound) {
		fail(w, "resource not found")
		return
	}
	if err != nil {
		a.logger.Error("looking up resource", "error", err)
		fail(w, "internal error")
		return
	}
	data, err := a.blobs.Get(ctx, media.ID)
	if err != nil {
		a.logger.Error("reading blob", "error", err)
		fail(w, "internal error")
		return
	}
	w.Header().Set("Content-Type", media.ContentType)
	w.Write(data)
}
