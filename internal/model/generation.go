package model

import "time"

// StyleConfig is the garment styling selection submitted by the user.
// It is stored as an opaque JSON blob alongside generations and order
// items.
type StyleConfig struct {
	Fabric  string `json:"fabric"`
	Pattern string `json:"pattern"`
	Style   string `json:"style"`
	Closure string `json:"closure"`
	Pocket  bool   `json:"pocket"`
}

// Generation is one AI-rendered garment preview, tied to the
// measurement it was rendered against.
type Generation struct {
	ID            string      `db:"id" json:"id"`
	UserID        string      `db:"user_id" json:"user_id"`
	MeasurementID string      `db:"measurement_id" json:"measurement_id"`
	ImageURL      string      `db:"image_url" json:"image_url"`
	Config        StyleConfig `db:"config" json:"config"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`

	// Populated on detail reads.
	Measurement *Measurement `db:"-" json:"measurement,omitempty"`
}
