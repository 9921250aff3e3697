// Package imagetype classifies file names as images by their extension and
// derives the name of the compressed JPEG written for them.
package imagetype

import (
	"slices"
	"strings"
)

// OutputExt is the extension of every file the compressor writes.
const OutputExt = ".jpg"

// knownExtensions lists the extensions treated as images.
// See https://developer.mozilla.org/en-US/docs/Web/Media/Formats/Image_types
var knownExtensions = map[string]struct{}{
	"apng":  {},
	"avif":  {},
	"gif":   {},
	"jpg":   {},
	"jpeg":  {},
	"jfif":  {},
	"pjpeg": {},
	"pjp":   {},
	"png":   {},
	"svg":   {},
	"webp":  {},
}

// Extension returns the lowercased, trimmed final extension of name without
// the dot. It returns "" when name has no extension. A name whose only dot
// is the leading one (".png", a hidden file) has no extension.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(name[i+1:]))
}

// IsImage reports whether name carries one of the known image extensions.
func IsImage(name string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	_, ok := knownExtensions[ext]
	return ok
}

// Stem returns name with its final extension removed.
func Stem(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name
	}
	return name[:i]
}

// OutputName returns the file name the compressed image is written to,
// e.g. "photo.v2.png" becomes "photo.v2.jpg".
func OutputName(name string) string {
	return Stem(name) + OutputExt
}

// Extensions returns the known image extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(knownExtensions))
	for ext := range knownExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
