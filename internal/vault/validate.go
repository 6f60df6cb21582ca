package vault

import (
	"fmt"
	"regexp"
	"strings"
)

// Folder swatches recognized by the UI palette.
var folderSwatches = map[string]struct{}{
	"gray":   {},
	"red":    {},
	"orange": {},
	"yellow": {},
	"green":  {},
	"teal":   {},
	"blue":   {},
	"purple": {},
	"pink":   {},
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidName reports whether a folder or file name is acceptable after
// trimming surrounding whitespace.
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}

// ValidSize reports whether a byte size is acceptable.
func ValidSize(size int64) bool {
	return size >= 0
}

// ValidColor accepts a named swatch or a #RRGGBB value.
func ValidColor(color string) bool {
	if _, ok := folderSwatches[color]; ok {
		return true
	}
	return hexColor.MatchString(color)
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	return name, nil
}

func errNegativeSize(size int64) error {
	return fmt.Errorf("%w: negative size %d", ErrValidation, size)
}

func validateColor(color string) (string, error) {
	if color == "" {
		return DefaultFolderColor, nil
	}
	if !ValidColor(color) {
		return "", fmt.Errorf("%w: unknown color %q", ErrValidation, color)
	}
	return color, nil
}
