// Package model defines the data structures shared by the qlty run core.
package model

import (
	"fmt"
	"strings"
)

// Platform identifies the device or browser a run targets.
type Platform string

const (
	// PlatformIOS is a native iOS application.
	PlatformIOS Platform = "ios"
	// PlatformAndroid is a native Android application.
	PlatformAndroid Platform = "android"
	// PlatformAndroidWeb is a browser running on an Android device.
	PlatformAndroidWeb Platform = "android_web"
	// PlatformIOSWeb is Safari running on an iOS device.
	PlatformIOSWeb Platform = "ios_web"
	// PlatformChrome is desktop Chrome.
	PlatformChrome Platform = "chrome"
	// PlatformFirefox is desktop Firefox.
	PlatformFirefox Platform = "firefox"
)

// Platforms returns every supported platform in display order.
func Platforms() []Platform {
	return []Platform{
		PlatformIOS,
		PlatformAndroid,
		PlatformAndroidWeb,
		PlatformIOSWeb,
		PlatformChrome,
		PlatformFirefox,
	}
}

// ParsePlatform converts user input into a Platform.
func ParsePlatform(value string) (Platform, error) {
	candidate := Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range Platforms() {
		if p == candidate {
			return p, nil
		}
	}

	valid := make([]string, 0, len(Platforms()))
	for _, p := range Platforms() {
		valid = append(valid, string(p))
	}

	return "", fmt.Errorf("unknown platform %q (valid: %s)", value, strings.Join(valid, ", "))
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}

// IsNative reports whether the platform drives an installed app.
func (p Platform) IsNative() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// IsMobileWeb reports whether the platform drives a mobile browser.
func (p Platform) IsMobileWeb() bool {
	return p == PlatformAndroidWeb || p == PlatformIOSWeb
}

// IsDesktopBrowser reports whether the platform drives a desktop browser.
func (p Platform) IsDesktopBrowser() bool {
	return p == PlatformChrome || p == PlatformFirefox
}

// IsAndroid reports whether the platform runs on an Android device.
func (p Platform) IsAndroid() bool {
	return p == PlatformAndroid || p == PlatformAndroidWeb
}

// IsIOS reports whether the platform runs on an iOS device.
func (p Platform) IsIOS() bool {
	return p == PlatformIOS || p == PlatformIOSWeb
}
