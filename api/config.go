// Package api provides the HTTP API for registering handwriting samples and
// identifying the author of a query image.
package api

import (
	"github.com/authorid/authorid/pkg/eventstream"
	"github.com/authorid/authorid/pkg/fingerprint"
	"github.com/authorid/authorid/pkg/imagestore"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":5001")
	ListenAddr string

	// Fingerprinter turns uploaded images into fingerprints. Required.
	Fingerprinter fingerprint.Fingerprinter

	// Images stores the uploaded sample images. Required.
	Images imagestore.Store

	// Publisher receives sample lifecycle events. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// SecretKey is the base64 encoded key used to encrypt session cookies.
	SecretKey string

	// SecureCookies marks the session cookie as HTTPS only.
	SecureCookies bool
}
