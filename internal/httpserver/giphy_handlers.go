package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/n3m01726/chattyChat/internal/giphy"
)

func offsetParam(r *http.Request) int {
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}

func handleGifSearch(gifs *giphy.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gifs == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gif search is not configured"})
			return
		}
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		results, err := gifs.Search(r.Context(), query, limitParam(r, 20), offsetParam(r))
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "gif search failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"gifs": results})
	}
}

func handleGifTrending(gifs *giphy.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gifs == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gif search is not configured"})
			return
		}
		results, err := gifs.Trending(r.Context(), limitParam(r, 20), offsetParam(r))
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "gif lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"gifs": results})
	}
}

func handleGifByID(gifs *giphy.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gifs == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gif search is not configured"})
			return
		}
		gif, err := gifs.GetByID(r.Context(), chi.URLParam(r, "gifID"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "gif not found"})
			return
		}
		writeJSON(w, http.StatusOK, gif)
	}
}
