// Package qlty is the entry point for test suites. A suite declares its tests
// in a Catalog and hands it to Main from its own main package:
//
//	func main() {
//		qlty.Main(qlty.NewCatalog().MustAdd(
//			qlty.Entry{Class: "LoginTest", Method: "testValid", CaseIDs: []string{"C101"}, New: newLoginTest},
//		))
//	}
package qlty

import (
	"qlty.dev/pkg/qlty/cmd"
	"qlty.dev/pkg/qlty/internal/adapter"
	"qlty.dev/pkg/qlty/internal/domain"
	m "qlty.dev/pkg/qlty/internal/model"
)

type (
	// T is the handle a test body reports through.
	T = domain.T
	// TestCase is implemented by every test.
	TestCase = domain.TestCase
	// TestFunc adapts a function to TestCase.
	TestFunc = domain.TestFunc
	// SetUpper runs before the body.
	SetUpper = domain.SetUpper
	// TearDowner runs after the body, even when it failed.
	TearDowner = domain.TearDowner
	// Entry declares one test of a Catalog.
	Entry = domain.Entry
	// Catalog is the set of tests a suite binary runs.
	Catalog = domain.Catalog
	// Driver is the automation session of a UI test.
	Driver = adapter.DriverHandle
	// Platform names a run target.
	Platform = m.Platform
	// Target separates UI tests from API tests.
	Target = m.Target
	// ArtifactKind classifies files attached to a record.
	ArtifactKind = m.ArtifactKind
	// Path is a file path attached as an artifact.
	Path = m.Path
)

// Platforms.
const (
	IOS        = m.PlatformIOS
	Android    = m.PlatformAndroid
	AndroidWeb = m.PlatformAndroidWeb
	IOSWeb     = m.PlatformIOSWeb
	Chrome     = m.PlatformChrome
	Firefox    = m.PlatformFirefox
)

// Targets.
const (
	UI  = m.TargetUI
	API = m.TargetAPI
)

// Artifact kinds.
const (
	Screenshot = m.ArtifactScreenshot
	PageSource = m.ArtifactPageSource
	SystemLog  = m.ArtifactSystemLog
	Custom     = m.ArtifactCustom
)

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return domain.NewCatalog()
}

// Main runs the qlty command line over catalog and exits the process.
func Main(catalog *Catalog) {
	cmd.Execute(catalog)
}
