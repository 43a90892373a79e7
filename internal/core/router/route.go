package router

import (
	"strings"
)

// Route is the handling an object gets, chosen from its key suffix.
type Route string

const (
	RouteSkip     Route = "skip"
	RouteText     Route = "text"
	RouteImage    Route = "image"
	RouteDocument Route = "document"
)

var (
	textSuffixes     = []string{".txt", ".csv", ".tsv"}
	imageSuffixes    = []string{".ome.tiff", ".ome.tif", ".tif"}
	documentSuffixes = []string{".pdf", ".docx", ".doc", ".odt", ".rtf", ".pages", ".html", ".htm", ".xml"}
)

// Classify routes a key by suffix. Suffixes are matched case-sensitively.
// Document keys are only routed when documents is set.
func Classify(key string, documents bool) Route {
	switch {
	case hasAnySuffix(key, textSuffixes):
		return RouteText
	case hasAnySuffix(key, imageSuffixes):
		return RouteImage
	case documents && hasAnySuffix(key, documentSuffixes):
		return RouteDocument
	}
	return RouteSkip
}

func hasAnySuffix(key string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// NormalizePrefix strips one leading "/" from prefix. When the result ends
// in "/" and no startAfter was given, listing starts after the prefix
// itself so the folder placeholder key is not returned.
func NormalizePrefix(prefix, startAfter string) (string, string) {
	prefix = strings.TrimPrefix(prefix, "/")
	if strings.HasSuffix(prefix, "/") && startAfter == "" {
		startAfter = prefix
	}
	return prefix, startAfter
}
