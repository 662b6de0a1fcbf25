package drafts

import "github.com/cespare/xxhash/v2"

// ColorPair is an avatar background with a readable foreground.
type ColorPair struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

var palette = []ColorPair{
	{Background: "#FDE2E4", Foreground: "#9B2C2C"},
	{Background: "#E2F0CB", Foreground: "#276749"},
	{Background: "#DBEAFE", Foreground: "#1E40AF"},
	{Background: "#FEF3C7", Foreground: "#92400E"},
	{Background: "#EDE9FE", Foreground: "#5B21B6"},
	{Background: "#CFFAFE", Foreground: "#155E75"},
	{Background: "#FCE7F3", Foreground: "#9D174D"},
	{Background: "#E5E7EB", Foreground: "#1F2937"},
}

// ColorFor maps an id onto the palette. The same id always yields the same pair.
func ColorFor(id string) ColorPair {
	return palette[xxhash.Sum64String(id)%uint64(len(palette))]
}
