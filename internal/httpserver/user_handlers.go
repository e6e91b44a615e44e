package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/service"
	"github.com/n3m01726/chattyChat/internal/upload"
)

func handleListUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.List(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleGetProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		profile, err := userSvc.GetProfile(r.Context(), username)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func handleListMembers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		members, err := userSvc.ListMembers(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list members"})
			return
		}
		writeJSON(w, http.StatusOK, members)
	}
}

// decodeProfilePatch maps a partial JSON body onto a ProfilePatch. A key
// that is absent leaves the field unchanged; an explicit null clears it.
func decodeProfilePatch(r *http.Request) (*domain.ProfilePatch, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	patch := &domain.ProfilePatch{}
	var err error
	if patch.DisplayName, err = nullableString(body, "display_name"); err != nil {
		return nil, err
	}
	if patch.Bio, err = nullableString(body, "bio"); err != nil {
		return nil, err
	}
	if patch.Pronouns, err = nullableString(body, "pronouns"); err != nil {
		return nil, err
	}
	if patch.CustomColor, err = nullableString(body, "custom_color"); err != nil {
		return nil, err
	}
	if patch.AvatarURL, err = nullableString(body, "avatar_url"); err != nil {
		return nil, err
	}
	if patch.BannerURL, err = nullableString(body, "banner_url"); err != nil {
		return nil, err
	}
	if patch.StatusText, err = nullableString(body, "status_text"); err != nil {
		return nil, err
	}

	if raw, ok := body["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, errors.New("status must be a string")
		}
		switch status {
		case domain.StatusOnline, domain.StatusAway, domain.StatusBusy, domain.StatusOffline:
		default:
			return nil, fmt.Errorf("unknown status %q", status)
		}
		patch.Status = &status
	}
	if raw, ok := body["timezone"]; ok {
		var tz string
		if err := json.Unmarshal(raw, &tz); err != nil {
			return nil, errors.New("timezone must be a string")
		}
		patch.Timezone = &tz
	}
	if raw, ok := body["dark_mode"]; ok {
		var dark bool
		if err := json.Unmarshal(raw, &dark); err != nil {
			return nil, errors.New("dark_mode must be a boolean")
		}
		patch.DarkMode = &dark
	}
	return patch, nil
}

func nullableString(body map[string]json.RawMessage, key string) (**string, error) {
	raw, ok := body[key]
	if !ok {
		return nil, nil
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%s must be a string or null", key)
	}
	return &v, nil
}

func handleUpdateProfile(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patch, err := decodeProfilePatch(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		updated, err := userSvc.UpdateProfile(r.Context(), user.Username, patch)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleUploadAvatar(userSvc *service.UserService, files *upload.LocalStore) http.HandlerFunc {
	return handleProfileImage(userSvc, files, func(ref string) *domain.ProfilePatch {
		r := &ref
		return &domain.ProfilePatch{AvatarURL: &r}
	})
}

func handleUploadBanner(userSvc *service.UserService, files *upload.LocalStore) http.HandlerFunc {
	return handleProfileImage(userSvc, files, func(ref string) *domain.ProfilePatch {
		r := &ref
		return &domain.ProfilePatch{BannerURL: &r}
	})
}

// handleProfileImage stores an uploaded image and patches the profile with
// its reference. Replacing an existing image deletes the old blob.
func handleProfileImage(userSvc *service.UserService, files *upload.LocalStore, patchFor func(ref string) *domain.ProfilePatch) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse multipart form"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
			return
		}
		defer file.Close()

		if kind := attachmentKindFor(header); kind != domain.AttachmentImage {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only images are allowed"})
			return
		}

		ref, err := files.Save(header.Filename, file)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not save file"})
			return
		}

		updated, err := userSvc.UpdateProfile(r.Context(), user.Username, patchFor(ref))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteAccount(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := userSvc.DeleteAccount(r.Context(), user.Username); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete account"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
	}
}
