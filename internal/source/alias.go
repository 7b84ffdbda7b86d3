package source

import "strings"

// aliases maps the variable names used by common meteorological products
// onto the short names pipelines refer to.
var aliases = map[string]string{
	"ugrd":                "u",
	"u-component":         "u",
	"vgrd":                "v",
	"v-component":         "v",
	"w":                   "w",
	"vvel":                "w",
	"tmp":                 "t",
	"temperature":         "t",
	"hgt":                 "z",
	"geopotential_height": "z",
}

// Normalize maps known variable aliases to their canonical short name.
// Unknown names are returned unchanged.
func Normalize(name string) string {
	if short, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return short
	}
	return name
}
