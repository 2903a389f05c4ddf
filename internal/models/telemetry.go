package models

type CursorSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp string  `json:"timestamp"`
}

// KeystrokeEvent is one key press as captured by the client. Timestamp is
// optional and is synthesized from Duration when absent.
type KeystrokeEvent struct {
	Key              string   `json:"key"`
	Duration         float64  `json:"duration"`
	KeyPressDuration *float64 `json:"keyPressDuration,omitempty"`
	Timestamp        string   `json:"timestamp,omitempty"`
}

type ClickEvent struct {
	Element   string  `json:"element"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp string  `json:"timestamp"`
}

type ScrollEvent struct {
	ScrollTop   float64 `json:"scrollTop"`
	ScrollSpeed float64 `json:"scrollSpeed"`
	Direction   string  `json:"direction"`
	Timestamp   string  `json:"timestamp"`
}

type FormInteraction struct {
	FieldName string  `json:"fieldName"`
	TimeSpent float64 `json:"timeSpent"`
}

type HoverEvent struct {
	Element  string  `json:"element"`
	Duration float64 `json:"duration"`
}

type WindowFocusEvent struct {
	Focused   bool   `json:"focused"`
	Timestamp string `json:"timestamp"`
}

type CopyPasteEvent struct {
	Action    string `json:"action"`
	Field     string `json:"field"`
	Timestamp string `json:"timestamp"`
}

type ResizeEvent struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Timestamp string  `json:"timestamp"`
}

type VisibilityEvent struct {
	Visible   bool   `json:"visible"`
	Timestamp string `json:"timestamp"`
}

type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// DeviceOrientation axes are pointers so a sample with a missing axis can be
// told apart from a zero reading.
type DeviceOrientation struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

type TouchSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Pressure  float64 `json:"pressure"`
	Timestamp string  `json:"timestamp"`
}

type DragDropEvent struct {
	Element   string  `json:"element"`
	StartX    float64 `json:"startX"`
	StartY    float64 `json:"startY"`
	EndX      float64 `json:"endX"`
	EndY      float64 `json:"endY"`
	Timestamp string  `json:"timestamp"`
}

type DeviceInfo struct {
	DeviceType string `json:"deviceType"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
}

const DeviceTypeMobile = "mobile"

// BehaviorData is the full client-side capture submitted with a
// verification request.
type BehaviorData struct {
	CursorData         []CursorSample     `json:"cursorData"`
	ClickData          []ClickEvent       `json:"clickData"`
	KeystrokeData      []KeystrokeEvent   `json:"keystrokeData"`
	ScrollData         []ScrollEvent      `json:"scrollData"`
	TimeOnPage         *float64           `json:"timeOnPage,omitempty"`
	IdleTime           *float64           `json:"idleTime,omitempty"`
	FormInteraction    []FormInteraction  `json:"formInteraction"`
	HoverData          []HoverEvent       `json:"hoverData"`
	WindowFocusData    []WindowFocusEvent `json:"windowFocusData"`
	DeviceInfo         *DeviceInfo        `json:"deviceInfo,omitempty"`
	CopyPasteData      []CopyPasteEvent   `json:"copyPasteData"`
	ZoomLevel          *float64           `json:"zoomLevel,omitempty"`
	ResizeData         []ResizeEvent      `json:"resizeData"`
	PageVisibility     []VisibilityEvent  `json:"pageVisibility"`
	GeoLocation        *GeoLocation       `json:"geoLocation,omitempty"`
	DeviceOrientation  *DeviceOrientation `json:"deviceOrientation,omitempty"`
	TouchData          []TouchSample      `json:"touchData"`
	DragDropData       []DragDropEvent    `json:"dragDropData"`
	BrowserFingerprint string             `json:"browserFingerprint"`
}

type VerifyRequest struct {
	UserBehaviorData *BehaviorData `json:"userBehaviorData"`
}
