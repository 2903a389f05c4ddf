package validation

import (
	"net"
	"strings"
	"unicode"

	"github.com/mssola/useragent"
)

const maxFingerprintLength = 1024

var automationKeywords = []string{
	"headless", "selenium", "webdriver", "puppeteer",
	"playwright", "phantom", "jsdom", "nightmare",
	"python-requests", "python-urllib", "go-http-client",
	"curl/", "wget/", "okhttp", "scrapy", "httpclient",
	"automated", "bot/", "crawler", "spider",
}

// ValidateIP reports whether ip is a well-formed IPv4 or IPv6 literal.
func ValidateIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// ValidateUserAgent reports whether ua looks like a real browser: it must
// parse to a known browser family and carry no bot or automation marker.
func ValidateUserAgent(ua string) bool {
	if len(ua) < 10 || len(ua) > 1000 {
		return false
	}

	if len(AutomationKeywords(ua)) > 0 {
		return false
	}

	parsed := useragent.New(ua)
	if parsed.Bot() {
		return false
	}

	name, _ := parsed.Browser()
	return name != ""
}

// AutomationKeywords returns the automation markers found in ua.
func AutomationKeywords(ua string) []string {
	lowerUA := strings.ToLower(ua)

	var found []string
	for _, keyword := range automationKeywords {
		if strings.Contains(lowerUA, keyword) {
			found = append(found, keyword)
		}
	}
	return found
}

func ValidateFingerprint(fp string) bool {
	trimmed := strings.TrimSpace(fp)
	if trimmed == "" || len(trimmed) > maxFingerprintLength {
		return false
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
