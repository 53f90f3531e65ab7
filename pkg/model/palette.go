package model

import "strings"

// LabelColor is one entry of the fixed label palette.
type LabelColor struct {
	Name  string
	Value string
}

// LabelColors returns the palette labels can be colored with.
func LabelColors() []LabelColor {
	return []LabelColor{
		{Name: "Green", Value: "#61bd4f"},
		{Name: "Yellow", Value: "#f2d600"},
		{Name: "Orange", Value: "#ff9f1a"},
		{Name: "Red", Value: "#eb5a46"},
		{Name: "Purple", Value: "#c377e0"},
		{Name: "Blue", Value: "#0079bf"},
		{Name: "Sky", Value: "#00c2e0"},
		{Name: "Lime", Value: "#51e898"},
		{Name: "Pink", Value: "#ff78cb"},
		{Name: "Black", Value: "#344563"},
	}
}

// IsPaletteColor reports whether the color value belongs to the palette.
func IsPaletteColor(value string) bool {
	for _, c := range LabelColors() {
		if strings.EqualFold(c.Value, value) {
			return true
		}
	}

	return false
}
