// Package routepath implements the lexical rules for composing and
// canonicalizing dynamic-route URL paths.
package routepath

import "strings"

const apiPrefix = "/api"

// reservedSegments are the first path segments under /api/ that belong to the
// static CRUD surface. Endpoints may not be created under them.
var reservedSegments = []string{"projects", "pages", "endpoints", "debug", "auth", "generate"}

// Normalize ensures a leading '/' and strips a single trailing '/' unless the
// path is exactly "/".
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// Canonical computes the dispatch lookup key for a request path: normalized,
// with a repeated leading /api collapsed to one.
func Canonical(p string) string {
	p = Normalize(p)
	for strings.HasPrefix(p, apiPrefix+apiPrefix+"/") {
		p = strings.TrimPrefix(p, apiPrefix)
	}
	return p
}

// EndpointPath composes the full endpoint path for a project slug and a
// user-supplied path. The user path may arrive relative ("/sum"), already
// composed ("/api/s/b"), or over-anchored by a generator ("/api/s/s/x");
// leading /api and slug segments are stripped before re-anchoring so the
// result is always "/api/<slug>/<rest>".
func EndpointPath(slug, userPath string) string {
	rest := Normalize(userPath)
	if rest == apiPrefix || strings.HasPrefix(rest, apiPrefix+"/") {
		rest = Normalize(strings.TrimPrefix(rest, apiPrefix))
	}
	for rest == "/"+slug || strings.HasPrefix(rest, "/"+slug+"/") {
		rest = Normalize(strings.TrimPrefix(rest, "/"+slug))
	}
	if rest == "/" {
		return apiPrefix + "/" + slug
	}
	return apiPrefix + "/" + slug + rest
}

// PagePath composes the full page path for a project slug and a user-supplied
// path: "/<slug><normalized path>", where leading slug segments of the user
// path are stripped first so an already-composed path round-trips unchanged
// ("/hello-world/home" stays "/hello-world/home"). Paths under /api/ are rejected by the
// CRUD layer before composition; ReanchorPagePath handles generated paths.
func PagePath(slug, userPath string) string {
	rest := Normalize(userPath)
	for rest == "/"+slug || strings.HasPrefix(rest, "/"+slug+"/") {
		rest = Normalize(strings.TrimPrefix(rest, "/"+slug))
	}
	if rest == "/" {
		return "/" + slug
	}
	return "/" + slug + rest
}

// ReanchorPagePath relocates a proposed page path that landed under /api/
// back under the project slug. Used for generator-proposed paths, which are
// re-anchored instead of rejected.
func ReanchorPagePath(slug, proposed string) string {
	p := Normalize(proposed)
	if strings.HasPrefix(p, apiPrefix+"/") || p == apiPrefix {
		p = Normalize(strings.TrimPrefix(p, apiPrefix))
	}
	return PagePath(slug, p)
}

// IsAPIPath reports whether the path lives under /api/.
func IsAPIPath(p string) bool {
	p = Normalize(p)
	return p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/")
}

// IsReserved reports whether a composed endpoint path collides with the
// static CRUD surface.
func IsReserved(fullPath string) bool {
	p := Normalize(fullPath)
	if !strings.HasPrefix(p, apiPrefix+"/") {
		return false
	}
	rest := strings.TrimPrefix(p, apiPrefix+"/")
	seg := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		seg = rest[:i]
	}
	for _, reserved := range reservedSegments {
		if seg == reserved {
			return true
		}
	}
	return false
}
