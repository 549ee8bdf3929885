package dto

import "time"

// StyleConfigDTO is the garment styling selection
type StyleConfigDTO struct {
	Fabric  string `json:"fabric" validate:"required"`
	Pattern string `json:"pattern" validate:"required"`
	Style   string `json:"style" validate:"required"`
	Closure string `json:"closure" validate:"required"`
	Pocket  bool   `json:"pocket"`
}

// GenerationCreateDTO is used for incoming try-on requests
type GenerationCreateDTO struct {
	MeasurementID  string         `json:"measurement_id" validate:"required"`
	ProfileImageID string         `json:"profile_image_id" validate:"required"`
	Config         StyleConfigDTO `json:"config" validate:"required"`
}

// GenerationResponseDTO is returned in API responses for generations
type GenerationResponseDTO struct {
	GenerationID  string                  `json:"generation_id"`
	MeasurementID string                  `json:"measurement_id"`
	ImageURL      string                  `json:"image_url"`
	Config        StyleConfigDTO          `json:"config"`
	CreatedAt     time.Time               `json:"created_at"`
	Measurement   *MeasurementResponseDTO `json:"measurement,omitempty"`
}
