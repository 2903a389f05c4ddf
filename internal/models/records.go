package models

import (
	"time"
)

type MouseMetrics struct {
	TotalDistance float64 `json:"total_distance"`
	TotalTime     float64 `json:"total_time"`
	AverageSpeed  float64 `json:"average_speed"`
	MaxSpeed      float64 `json:"max_speed"`
	Acceleration  float64 `json:"acceleration"`
	Entropy       float64 `json:"entropy"`
}

type KeyboardMetrics struct {
	TotalKeystrokes int     `json:"total_keystrokes"`
	AverageInterval float64 `json:"average_interval"`
	Entropy         float64 `json:"entropy"`
}

// ValidationResults holds one outcome per check. DeviceOrientationValid is
// nil when the check does not apply to the device class.
type ValidationResults struct {
	IPValid                bool  `json:"ip_valid"`
	UserAgentValid         bool  `json:"user_agent_valid"`
	FingerprintPresent     bool  `json:"fingerprint_present"`
	SessionDurationValid   bool  `json:"session_duration_valid"`
	MouseMovementValid     bool  `json:"mouse_movement_valid"`
	KeyboardInputValid     bool  `json:"keyboard_input_valid"`
	DeviceOrientationValid *bool `json:"device_orientation_valid"`
}

type VerificationLog struct {
	ID                 string            `db:"id" json:"id"`
	Timestamp          time.Time         `db:"timestamp" json:"timestamp"`
	IPAddress          string            `db:"ip_address" json:"ip_address"`
	UserAgent          string            `db:"user_agent" json:"user_agent"`
	BrowserFingerprint string            `db:"browser_fingerprint" json:"browser_fingerprint"`
	ReportedLatitude   *float64          `db:"reported_latitude" json:"reported_latitude,omitempty"`
	ReportedLongitude  *float64          `db:"reported_longitude" json:"reported_longitude,omitempty"`
	TimeOnPage         *float64          `db:"time_on_page" json:"time_on_page"`
	IdleTime           *float64          `db:"idle_time" json:"idle_time"`
	MouseMetrics       MouseMetrics      `db:"mouse_metrics" json:"mouse_metrics"`
	KeyboardMetrics    KeyboardMetrics   `db:"keyboard_metrics" json:"keyboard_metrics"`
	ValidationResults  ValidationResults `db:"validation_results" json:"validation_results"`
	ModelFeatures      []float64         `db:"model_features" json:"model_features"`
	IsBot              bool              `db:"is_bot" json:"is_bot"`
	Notes              string            `db:"notes" json:"notes"`
	UserBehaviorID     *string           `db:"user_behavior_id" json:"user_behavior_id,omitempty"`
}

type UserBehavior struct {
	ID        string       `db:"id" json:"id"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Data      BehaviorData `db:"payload" json:"data"`
}
