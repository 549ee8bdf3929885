package dto

import "time"

// MeasurementResponseDTO is returned in API responses for measurements
type MeasurementResponseDTO struct {
	MeasurementID  string    `json:"measurement_id"`
	ThobeLength    float64   `json:"thobe_length"`
	Chest          float64   `json:"chest_circumference"`
	Sleeve         float64   `json:"sleeve_length"`
	Shoulder       float64   `json:"shoulder_width"`
	HeightCm       float64   `json:"height_cm"`
	FrontImageID   string    `json:"front_image_id"`
	SideImageID    *string   `json:"side_image_id,omitempty"`
	ProfileImageID *string   `json:"profile_image_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AttachProfileImageDTO links a stored profile image to a measurement
type AttachProfileImageDTO struct {
	ProfileImageID string `json:"profile_image_id" validate:"required"`
}
