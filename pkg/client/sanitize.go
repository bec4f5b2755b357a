package client

import (
	"net/http"
	"strings"
)

const (
	redacted = "[PRIVATE DATA HIDDEN]"

	invalidTokenPrefix = "Invalid token format. Please generate new token"
)

var sensitiveHeaders = []string{"Authorization", "X-Auth-Token"}

// SanitizeHeaders returns a copy of h with credentials masked. h is returned
// as is when it carries none.
func SanitizeHeaders(h http.Header) http.Header {
	found := false
	for _, k := range sensitiveHeaders {
		if h.Get(k) != "" {
			found = true
			break
		}
	}
	if !found {
		return h
	}

	clean := h.Clone()
	for _, k := range sensitiveHeaders {
		if clean.Get(k) != "" {
			clean.Set(k, redacted)
		}
	}
	return clean
}

// SanitizeMessage strips the token the API echoes back when it rejects one
func SanitizeMessage(message string) string {
	if strings.HasPrefix(message, invalidTokenPrefix) {
		return invalidTokenPrefix
	}
	return message
}
