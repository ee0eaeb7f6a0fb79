// Package main builds qlty with the smoke suite.
package main

import (
	"qlty.dev/pkg/qlty/examples/smoke"
	"qlty.dev/pkg/qlty/pkg/qlty"
)

func main() {
	qlty.Main(smoke.Catalog())
}
