package validation

// Failure reasons, in the order the aggregator reports them.
const (
	ReasonInvalidIP          = "Invalid or missing IP address"
	ReasonInvalidUserAgent   = "Invalid or missing user agent"
	ReasonInvalidFingerprint = "Missing or invalid browser fingerprint"

	ReasonMissingSession = "Missing session duration data"
	ReasonShortSession   = "Session too short"
	ReasonLowIdleTime    = "Idle time below minimum"

	ReasonMissingMouse = "Missing mouse movement data"
	ReasonInvalidMouse = "Mouse movement validation failed"

	ReasonMissingKeyboard = "Missing keyboard data"
	ReasonInvalidKeyboard = "Keyboard input validation failed"

	ReasonMissingDeviceInfo = "Missing device info"

	ReasonMissingOrientation    = "Missing device orientation data"
	ReasonIncompleteOrientation = "Incomplete device orientation data"
	ReasonInvalidOrientation    = "Device orientation validation failed"
)
