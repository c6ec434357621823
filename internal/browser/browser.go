// Package browser opens URLs in the user's default web browser.
package browser

import (
	"github.com/pkg/browser"
)

// Opener opens a URL for the user to look at.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open implements Opener.
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// System opens URLs with the platform's default browser.
type System struct{}

// Open implements Opener.
func (System) Open(url string) error {
	return browser.OpenURL(url)
}
