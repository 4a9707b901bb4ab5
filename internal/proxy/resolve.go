// Package proxy implements the same-origin streaming relay: URL resolution,
// recursive playlist rewriting, and the chunked media relay behind
// /api/proxy/stream and /api/proxy/m3u8.
package proxy

import (
	"net/url"
	"strings"
)

// DirectoryBase strips the final path segment from a playlist URL,
// keeping everything up to and including the last slash. Relative
// references in the playlist resolve against this.
func DirectoryBase(target string) string {
	i := strings.LastIndex(target, "/")
	if i < 0 {
		return target + "/"
	}
	return target[:i+1]
}

// ResolveReference returns the absolute form of a playlist reference.
// A reference that already carries a scheme is returned unchanged;
// anything unparseable falls back to the reference itself so playlist
// entries are never dropped.
func ResolveReference(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

// IsSubPlaylist classifies a reference by its original (pre-resolution)
// text: a case-insensitive ".m3u8" or ".m3u" substring anywhere marks a
// nested playlist; everything else is a media segment. Substring, not
// suffix — providers routinely append query strings to playlist URLs.
func IsSubPlaylist(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.Contains(lower, ".m3u8") || strings.Contains(lower, ".m3u")
}
