// Package static is a hierarchy of files that are added to
// the generated emulator.
//
// The intention is that we can ship a number of binary CP/M
// files within our emulator.
package static

import "embed"

//go:embed */*
var Content embed.FS

// GetContent returns the embedded filesystem, for callers that want to
// walk it (tests, or the supervisor materialising the initial A: disk).
func GetContent() embed.FS {
	return Content
}

// GetEmptyContent returns an empty filesystem, for callers that want to
// disable the embedded A: utilities entirely (the "-embed=false" flag).
func GetEmptyContent() embed.FS {
	return empty
}

//go:embed _empty
var empty embed.FS
