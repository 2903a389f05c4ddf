package validation

import (
	"strings"

	"behaviorgate/internal/models"
)

func IsMobile(device *models.DeviceInfo) bool {
	return device != nil && strings.EqualFold(device.DeviceType, models.DeviceTypeMobile)
}

// HasDeviceInfo reports whether the client described its device class.
func HasDeviceInfo(device *models.DeviceInfo) bool {
	return device != nil && strings.TrimSpace(device.DeviceType) != ""
}

// CheckOrientation returns nil when the check does not apply (non-mobile
// devices). For mobile devices it returns the verdict and, on failure, the
// reason.
func CheckOrientation(device *models.DeviceInfo, o *models.DeviceOrientation) (*bool, string) {
	if !IsMobile(device) {
		return nil, ""
	}

	valid := false
	switch {
	case o == nil:
		return &valid, ReasonMissingOrientation
	case o.Alpha == nil || o.Beta == nil || o.Gamma == nil:
		return &valid, ReasonIncompleteOrientation
	case *o.Alpha == *o.Beta && *o.Beta == *o.Gamma:
		return &valid, ReasonInvalidOrientation
	}

	valid = true
	return &valid, ""
}

// CheckSession validates the reported session timings and returns the first
// failing reason.
func CheckSession(timeOnPage, idleTime *float64, p Policy) (bool, string) {
	switch {
	case timeOnPage == nil || idleTime == nil:
		return false, ReasonMissingSession
	case *timeOnPage < p.MinTimeOnPage:
		return false, ReasonShortSession
	case *idleTime < p.MinIdleTime:
		return false, ReasonLowIdleTime
	}
	return true, ""
}
