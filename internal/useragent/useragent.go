// Package useragent maps raw User-Agent strings to a coarse device type plus
// browser and OS labels for analytics breakdowns. Parsing never fails:
// malformed or empty input degrades to "unknown" labels.
package useragent

import "strings"

// Device types reported in scan analytics.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

const unknownLabel = "unknown"

// Classification is the derived view of a single User-Agent string.
type Classification struct {
	DeviceType string
	Browser    string
	OS         string
}

// botPatterns are known bot User-Agent substrings (lowercase).
var botPatterns = []string{
	"googlebot", "bingbot", "slurp", "duckduckbot",
	"baiduspider", "yandexbot", "facebookexternalhit",
	"twitterbot", "linkedinbot", "applebot", "semrushbot",
	"ahrefsbot", "petalbot", "bytespider", "bot/", "crawler",
	"spider", "curl/", "wget/", "python-requests",
}

// Classify derives {device, browser, os} from a raw User-Agent string.
// It is a pure function: same input, same output, no side effects.
func Classify(raw string) Classification {
	ua := strings.ToLower(strings.TrimSpace(raw))
	if ua == "" {
		return Classification{DeviceType: DeviceUnknown, Browser: unknownLabel, OS: unknownLabel}
	}

	c := Classification{
		DeviceType: deviceType(ua),
		Browser:    browser(ua),
		OS:         operatingSystem(ua),
	}
	return c
}

func deviceType(ua string) string {
	if isBot(ua) {
		return DeviceBot
	}

	switch {
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "kindle"),
		// Android tablets carry "android" without the "mobile" token.
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android"),
		strings.Contains(ua, "ipod"),
		strings.Contains(ua, "windows phone"):
		return DeviceMobile
	case strings.Contains(ua, "windows"),
		strings.Contains(ua, "macintosh"),
		strings.Contains(ua, "mac os x"),
		strings.Contains(ua, "x11"),
		strings.Contains(ua, "linux"),
		strings.Contains(ua, "cros"):
		return DeviceDesktop
	}
	return DeviceUnknown
}

func isBot(ua string) bool {
	for _, pattern := range botPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

// browser detection order matters: Chromium-family browsers all contain
// "chrome", and everything WebKit-based contains "safari".
func browser(ua string) string {
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "samsungbrowser"):
		return "Samsung Internet"
	case strings.Contains(ua, "firefox/") || strings.Contains(ua, "fxios/"):
		return "Firefox"
	case strings.Contains(ua, "crios/"):
		return "Chrome"
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "chromium/"):
		return "Chrome"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident/"):
		return "Internet Explorer"
	}
	return unknownLabel
}

func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "windows phone"):
		return "Windows Phone"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return "iOS"
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "cros"):
		return "ChromeOS"
	case strings.Contains(ua, "linux"), strings.Contains(ua, "x11"):
		return "Linux"
	}
	return unknownLabel
}
