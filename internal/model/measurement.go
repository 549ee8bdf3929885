package model

import "time"

// Measurement holds the anthropometric values returned by the vision
// service for one capture. Rows are immutable after creation except for
// the later attachment of a profile image.
type Measurement struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ThobeLength    float64   `db:"thobe_length" json:"thobe_length"`
	Chest          float64   `db:"chest" json:"chest"`
	Sleeve         float64   `db:"sleeve" json:"sleeve"`
	Shoulder       float64   `db:"shoulder" json:"shoulder"`
	HeightCm       float64   `db:"height_cm" json:"height_cm"`
	FrontImageID   string    `db:"front_image_id" json:"front_image_id"`
	SideImageID    *string   `db:"side_image_id" json:"side_image_id,omitempty"`
	ProfileImageID *string   `db:"profile_image_id" json:"profile_image_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
