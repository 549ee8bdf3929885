package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"thoub/internal/api/v1/dto"
	"thoub/internal/middleware"
	"thoub/internal/model"
	"thoub/internal/service"
)

const maxAvatarBytes = 10 << 20 // 10 MiB

type UserHandler struct {
	userService   service.UserService
	creditService service.CreditService
	mediaService  service.MediaService
}

func NewUserHandler(userService service.UserService, creditService service.CreditService, mediaService service.MediaService) *UserHandler {
	return &UserHandler{userService: userService, creditService: creditService, mediaService: mediaService}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("/users/me/credits", authMw(http.HandlerFunc(h.getCredits)))
	mux.Handle("/users/me/avatar", authMw(http.HandlerFunc(h.uploadAvatar)))
}

func toUserDTO(u *model.User, avatarURL string) dto.UserResponseDTO {
	return dto.UserResponseDTO{
		UserID:             u.ID,
		Name:               u.Name,
		Email:              u.Email,
		AvatarURL:          avatarURL,
		MeasurementCredits: u.MeasurementCredits,
		GenerationCredits:  u.GenerationCredits,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	avatarURL := ""
	if user.ProfileImageKey != nil {
		// A presign failure degrades to a missing avatar, not a 500.
		avatarURL, _ = h.mediaService.AvatarURL(r.Context(), *user.ProfileImageKey)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserDTO(user, avatarURL))
}

func (h *UserHandler) getCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	balance, err := h.creditService.GetBalance(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to retrieve credits: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := dto.CreditBalanceResponseDTO{
		MeasurementCredits: balance.Measurement,
		GenerationCredits:  balance.Generation,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *UserHandler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		http.Error(w, "Invalid multipart payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		http.Error(w, "Missing avatar file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	key, err := h.mediaService.UploadAvatar(r.Context(), userID, header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, "Failed to upload avatar: "+err.Error(), http.StatusInternalServerError)
		return
	}
	avatarURL, err := h.mediaService.AvatarURL(r.Context(), key)
	if err != nil {
		http.Error(w, "Failed to generate avatar URL: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto.AvatarResponseDTO{AvatarURL: avatarURL})
}
