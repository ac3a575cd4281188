package assets

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".webm": true,
	".mkv":  true,
}

// KindFromMIME classifies a declared MIME type. Anything that is not
// video/* is treated as an image.
func KindFromMIME(mimeType string) Kind {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(mimeType))
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if strings.HasPrefix(mediaType, "video/") {
		return KindVideo
	}
	return KindImage
}

// KindFromURL guesses the kind of a stored asset whose kind was never
// recorded.
func KindFromURL(raw string) Kind {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
		if strings.Contains(p, "/video/upload/") {
			return KindVideo
		}
	}
	if videoExtensions[strings.ToLower(path.Ext(p))] {
		return KindVideo
	}
	return KindImage
}
