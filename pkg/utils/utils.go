package utils

import "strings"

// BuildURI joins the parts with single slashes. Leading and trailing
// slashes of every part are stripped and empty parts are skipped;
// endingSlash appends one slash to the result.
func BuildURI(endingSlash bool, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	uri := strings.Join(kept, "/")
	if endingSlash {
		uri += "/"
	}
	return uri
}
