package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"thoub/internal/api/v1/dto"
	"thoub/internal/middleware"
	"thoub/internal/model"
	"thoub/internal/service"

	"github.com/go-playground/validator/v10"
)

type GenerationHandler struct {
	generationService service.GenerationService
	validate          *validator.Validate
}

func NewGenerationHandler(generationService service.GenerationService, v *validator.Validate) *GenerationHandler {
	return &GenerationHandler{generationService: generationService, validate: v}
}

// RegisterRoutes mounts v1 generation routes
func (h *GenerationHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/generations", authMw(http.HandlerFunc(h.handleGenerations)))
	mux.Handle("/generations/", authMw(http.HandlerFunc(h.handleGeneration)))
}

func (h *GenerationHandler) handleGenerations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createGeneration(w, r)
	case http.MethodGet:
		h.listGenerations(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GenerationHandler) handleGeneration(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getGeneration(w, r)
	case http.MethodDelete:
		h.deleteGeneration(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func toStyleConfigDTO(c model.StyleConfig) dto.StyleConfigDTO {
	return dto.StyleConfigDTO{
		Fabric:  c.Fabric,
		Pattern: c.Pattern,
		Style:   c.Style,
		Closure: c.Closure,
		Pocket:  c.Pocket,
	}
}

func toGenerationDTO(g *model.Generation) dto.GenerationResponseDTO {
	resp := dto.GenerationResponseDTO{
		GenerationID:  g.ID,
		MeasurementID: g.MeasurementID,
		ImageURL:      g.ImageURL,
		Config:        toStyleConfigDTO(g.Config),
		CreatedAt:     g.CreatedAt,
	}
	if g.Measurement != nil {
		m := toMeasurementDTO(g.Measurement)
		resp.Measurement = &m
	}
	return resp
}

// createGeneration godoc
// @Summary Generate a virtual try-on preview
// @Description Renders the selected style onto the user's profile photo. Costs one generation credit.
// @Tags generations
// @Accept json
// @Produce json
// @Success 201 {object} dto.GenerationResponseDTO
// @Failure 402 {string} string "Insufficient generation credits"
// @Router /generations [post]
func (h *GenerationHandler) createGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.GenerationCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := model.StyleConfig{
		Fabric:  req.Config.Fabric,
		Pattern: req.Config.Pattern,
		Style:   req.Config.Style,
		Closure: req.Config.Closure,
		Pocket:  req.Config.Pocket,
	}
	g, err := h.generationService.Generate(r.Context(), userID, req.MeasurementID, req.ProfileImageID, cfg)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientGenerationCredits):
			http.Error(w, err.Error(), http.StatusPaymentRequired)
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "Measurement not found", http.StatusNotFound)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to generate preview: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toGenerationDTO(g))
}

func (h *GenerationHandler) listGenerations(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	generations, err := h.generationService.List(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to retrieve generations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.GenerationResponseDTO, 0, len(generations))
	for i := range generations {
		resp = append(resp, toGenerationDTO(&generations[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *GenerationHandler) getGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	generationID := strings.TrimPrefix(r.URL.Path, "/generations/")

	g, err := h.generationService.Get(r.Context(), userID, generationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "Generation not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to retrieve generation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toGenerationDTO(g))
}

func (h *GenerationHandler) deleteGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	generationID := strings.TrimPrefix(r.URL.Path, "/generations/")

	if err := h.generationService.Delete(r.Context(), userID, generationID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			http.Error(w, "Generation not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to delete generation: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
