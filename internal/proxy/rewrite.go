package proxy

import (
	"net/url"
	"strings"
)

// Relative endpoint paths used when no api_base is supplied: the client is
// assumed to be talking to the same origin that serves the API.
const (
	playlistEndpoint = "/api/proxy/m3u8"
	streamEndpoint   = "/api/proxy/stream"
)

// Rewrite replaces every URI line of an M3U8 body with a proxy-routed URL
// so nested playlists and segments keep flowing through the relay.
// Directive and blank lines pass through byte-identical and line order is
// preserved, so the output has exactly as many lines as the input.
//
// encodedAPIBase is the client-supplied api_base query value, still
// percent-encoded. When present, rewritten sub-playlist URLs forward it so
// the whole chain resolves against the same externally visible origin;
// stream URLs get the prefix only, since segments are leaves.
func Rewrite(body, targetURL, encodedAPIBase string) string {
	base := DirectoryBase(targetURL)
	apiBase, err := url.QueryUnescape(encodedAPIBase)
	if err != nil {
		apiBase = encodedAPIBase
	}

	lines := strings.Split(body, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			out[i] = line
			continue
		}
		out[i] = rewriteLine(trimmed, base, apiBase)
	}
	return strings.Join(out, "\n")
}

func rewriteLine(ref, base, apiBase string) string {
	resolved := ResolveReference(base, ref)
	encoded := url.QueryEscape(resolved)

	if IsSubPlaylist(ref) {
		if apiBase != "" {
			return apiBase + "/proxy/m3u8?url=" + encoded + "&api_base=" + url.QueryEscape(apiBase)
		}
		return playlistEndpoint + "?url=" + encoded
	}
	if apiBase != "" {
		return apiBase + "/proxy/stream?url=" + encoded
	}
	return streamEndpoint + "?url=" + encoded
}
