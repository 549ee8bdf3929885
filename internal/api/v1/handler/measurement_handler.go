package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"thoub/internal/api/v1/dto"
	"thoub/internal/middleware"
	"thoub/internal/model"
	"thoub/internal/service"

	"github.com/go-playground/validator/v10"
)

const maxCaptureBytes = 32 << 20 // 32 MiB across all photos

type MeasurementHandler struct {
	measurementService service.MeasurementService
	validate           *validator.Validate
}

func NewMeasurementHandler(measurementService service.MeasurementService, v *validator.Validate) *MeasurementHandler {
	return &MeasurementHandler{measurementService: measurementService, validate: v}
}

// RegisterRoutes mounts v1 measurement routes
func (h *MeasurementHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/measurements", authMw(http.HandlerFunc(h.handleMeasurements)))
	mux.Handle("/measurements/", authMw(http.HandlerFunc(h.handleMeasurement)))
}

func (h *MeasurementHandler) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.capture(w, r)
	case http.MethodGet:
		h.listMeasurements(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MeasurementHandler) handleMeasurement(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/profile-image") {
		h.attachProfileImage(w, r)
		return
	}
	http.NotFound(w, r)
}

func toMeasurementDTO(m *model.Measurement) dto.MeasurementResponseDTO {
	return dto.MeasurementResponseDTO{
		MeasurementID:  m.ID,
		ThobeLength:    m.ThobeLength,
		Chest:          m.Chest,
		Sleeve:         m.Sleeve,
		Shoulder:       m.Shoulder,
		HeightCm:       m.HeightCm,
		FrontImageID:   m.FrontImageID,
		SideImageID:    m.SideImageID,
		ProfileImageID: m.ProfileImageID,
		CreatedAt:      m.CreatedAt,
	}
}

// capture godoc
// @Summary Capture body measurements
// @Description Runs the AI measurement flow against uploaded photos. Costs one measurement credit.
// @Tags measurements
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} dto.MeasurementResponseDTO
// @Failure 402 {string} string "Insufficient measurement credits"
// @Router /measurements [post]
func (h *MeasurementHandler) capture(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxCaptureBytes); err != nil {
		http.Error(w, "Invalid multipart payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	heightCm, err := strconv.ParseFloat(r.FormValue("height_cm"), 64)
	if err != nil || heightCm <= 0 {
		http.Error(w, "Invalid height_cm", http.StatusBadRequest)
		return
	}
	fitType := r.FormValue("fit_type")
	if fitType == "" {
		http.Error(w, "Missing fit_type", http.StatusBadRequest)
		return
	}

	front, frontHeader, err := r.FormFile("front_image")
	if err != nil {
		http.Error(w, "Missing front_image", http.StatusBadRequest)
		return
	}
	defer front.Close()
	profile, profileHeader, err := r.FormFile("profile_image")
	if err != nil {
		http.Error(w, "Missing profile_image", http.StatusBadRequest)
		return
	}
	defer profile.Close()

	in := service.CaptureInput{
		Front:   service.CaptureImage{Filename: frontHeader.Filename, Reader: front},
		Profile: service.CaptureImage{Filename: profileHeader.Filename, Reader: profile},
	}
	// The side photo is optional.
	if side, sideHeader, err := r.FormFile("side_image"); err == nil {
		defer side.Close()
		in.Side = &service.CaptureImage{Filename: sideHeader.Filename, Reader: side}
	}

	m, err := h.measurementService.Capture(r.Context(), userID, in, heightCm, fitType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientMeasurementCredits):
			http.Error(w, err.Error(), http.StatusPaymentRequired)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to capture measurements: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMeasurementDTO(m))
}

func (h *MeasurementHandler) listMeasurements(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	measurements, err := h.measurementService.List(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve measurements: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.MeasurementResponseDTO, 0, len(measurements))
	for i := range measurements {
		resp = append(resp, toMeasurementDTO(&measurements[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *MeasurementHandler) attachProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	measurementID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/measurements/"), "/profile-image")
	if measurementID == "" {
		http.NotFound(w, r)
		return
	}

	var req dto.AttachProfileImageDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.measurementService.AttachProfileImage(r.Context(), userID, measurementID, req.ProfileImageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "Measurement not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to attach profile image: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
