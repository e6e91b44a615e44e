package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/n3m01726/chattyChat/internal/upload"
)

// UploadRoutes returns the sub-router mounted at /api/uploads. It only
// serves stored blobs; writes go through the attachment and profile-image
// endpoints.
func UploadRoutes(files *upload.LocalStore) chi.Router {
	r := chi.NewRouter()

	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			http.Error(w, "missing filename", http.StatusBadRequest)
			return
		}
		path, err := files.Path(filename)
		if err != nil {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, path)
	})

	return r
}
