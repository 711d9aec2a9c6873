package transport

import (
	"net/url"
	"strings"
)

// JoinURL joins base and the given path segments with
// exactly one slash between each part. Segments are
// used verbatim; escape them first with PathEscape when
// they come from user input.
func JoinURL(base string, segments ...string) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimRight(base, "/"))

	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}

		sb.WriteByte('/')
		sb.WriteString(seg)
	}

	return sb.String()
}

// BuildURL joins base and path and appends the encoded
// query when it is not empty.
func BuildURL(
	base string,
	path string,
	query url.Values,
) string {
	u := JoinURL(base, path)

	if len(query) == 0 {
		return u
	}

	return u + "?" + query.Encode()
}

// PathEscape percent-encodes s so it can be placed in a
// single path segment. Slashes are escaped too, which is
// what project lookups by "owner/name" need.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// FilePath escapes every segment of a repository file
// path while keeping the separating slashes.
func FilePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
