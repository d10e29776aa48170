// Package sample is a fixture for extraction integration tests.
package sample

import "errors"

// Resize scales the canvas to the requested width.
//
// Parameters:
//   width - integer (range 1-4096), target width in pixels
//   label - string, optional display label
func Resize(width int, label string) (string, error) {
	if width == 0 {
		return "", errors.New("width is required")
	}
	if width < 1 {
		return "", errors.New("width out of range")
	}
	if label == "" {
		label = "thumb"
	}
	return label, nil
}

// Greet returns a greeting for the named user.
func Greet(name string) string {
	if name == "" {
		return "hello, stranger"
	}
	return "hello, " + name
}
