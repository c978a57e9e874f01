package constants

import (
	"path/filepath"
	"strings"
)

// DocumentFormat is the extraction branch chosen for an upload.
type DocumentFormat string

const (
	FormatPDF         DocumentFormat = "PDF"
	FormatImage       DocumentFormat = "IMAGE"
	FormatUnsupported DocumentFormat = "UNSUPPORTED"
)

const MimePDF = "application/pdf"

// ImageExtensions is the allow-list used when an image is recognized by declared mime type only.
var ImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// AllowedExtensions holds the extensions picked up by directory scans and the inbox watcher.
var AllowedExtensions = func() map[string]struct{} {
	m := map[string]struct{}{"pdf": {}}
	for k := range ImageExtensions {
		m[k] = struct{}{}
	}
	return m
}()

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForPath guesses a declared content type from the file name, the way an upload form would.
func MimeForPath(path string) string {
	switch NormalizeExt(filepath.Ext(path)) {
	case "pdf":
		return MimePDF
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	case "tif", "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	}
	return ""
}

// AcceptedMime reports whether a declared content type may enter the pipeline.
func AcceptedMime(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return mime == MimePDF || strings.HasPrefix(mime, "image/")
}
