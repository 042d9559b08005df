package device

import (
	"net/http"
	"strings"
	"unicode"

	goSession "github.com/MrEthical07/goSession"
)

const (
	// HeaderPlatform lets first-party clients declare their platform.
	HeaderPlatform = "X-Client-Platform"
	// HeaderDeviceName carries a user-chosen device label.
	HeaderDeviceName = "X-Device-Name"

	maxDeviceNameLen = 64
)

// appMarkers are User-Agent fragments sent by native HTTP stacks.
var appMarkers = []string{
	"okhttp/",
	"cfnetwork/",
	"dalvik/",
	"dart:io",
	"reactnative",
	"expo/",
}

// Classifier maps a request to [goSession.DeviceInfo].
type Classifier struct {
	// AppUserAgentPrefix, when set, marks User-Agents starting with it as app
	// clients (for example "MyApp/").
	AppUserAgentPrefix string
}

// Classify returns the platform and device name for r. The deviceName
// argument, when non-empty, overrides header-derived names.
func (c Classifier) Classify(r *http.Request, deviceName string) goSession.DeviceInfo {
	ua := r.UserAgent()

	info := goSession.DeviceInfo{Platform: c.platform(r.Header.Get(HeaderPlatform), ua)}

	name := deviceName
	if name == "" {
		name = r.Header.Get(HeaderDeviceName)
	}
	if name == "" {
		name = describeUserAgent(ua)
	}
	info.DeviceName = sanitizeName(name)
	return info
}

func (c Classifier) platform(declared, ua string) goSession.Platform {
	if p, err := goSession.ParsePlatform(declared); err == nil {
		return p
	}
	if c.AppUserAgentPrefix != "" && strings.HasPrefix(ua, c.AppUserAgentPrefix) {
		return goSession.PlatformApp
	}
	lower := strings.ToLower(ua)
	for _, m := range appMarkers {
		if strings.Contains(lower, m) {
			return goSession.PlatformApp
		}
	}
	return goSession.PlatformWeb
}

// describeUserAgent produces a coarse "Browser on OS" label.
func describeUserAgent(ua string) string {
	if ua == "" {
		return "Unknown device"
	}

	var browser string
	switch {
	case strings.Contains(ua, "Edg/"):
		browser = "Edge"
	case strings.Contains(ua, "OPR/"):
		browser = "Opera"
	case strings.Contains(ua, "Firefox/"):
		browser = "Firefox"
	case strings.Contains(ua, "Chrome/"):
		browser = "Chrome"
	case strings.Contains(ua, "Safari/"):
		browser = "Safari"
	}

	var os string
	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		os = "iOS"
	case strings.Contains(ua, "Android"):
		os = "Android"
	case strings.Contains(ua, "Windows"):
		os = "Windows"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		os = "macOS"
	case strings.Contains(ua, "Linux"):
		os = "Linux"
	}

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os + " device"
	}

	// Native clients usually send "Name/version ...".
	if i := strings.IndexAny(ua, " /"); i > 0 {
		return ua[:i]
	}
	return ua
}

func sanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	if len([]rune(s)) > maxDeviceNameLen {
		s = string([]rune(s)[:maxDeviceNameLen])
	}
	return s
}
