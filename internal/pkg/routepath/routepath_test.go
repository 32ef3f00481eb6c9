package routepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":          "/",
		"/":         "/",
		"sum":       "/sum",
		"/sum":      "/sum",
		"/sum/":     "/sum",
		" /sum/ ":   "/sum",
		"/a/b/c/":   "/a/b/c",
		"/trailing": "/trailing",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "/api/x/y", Canonical("/api/x/y"))
	assert.Equal(t, "/api/x/y", Canonical("/api/api/x/y"))
	assert.Equal(t, "/api/x/y", Canonical("/api/x/y/"))
	assert.Equal(t, "/hello-world/home", Canonical("/hello-world/home"))
	assert.Equal(t, "/", Canonical("/"))
}

func TestEndpointPath(t *testing.T) {
	// Relative user path.
	assert.Equal(t, "/api/math-utils/sum", EndpointPath("math-utils", "/sum"))
	assert.Equal(t, "/api/math-utils/sum", EndpointPath("math-utils", "sum/"))

	// Already-composed full path round-trips unchanged.
	assert.Equal(t, "/api/s/b", EndpointPath("s", "/api/s/b"))

	// Over-anchored generator path is collapsed.
	assert.Equal(t, "/api/s/x", EndpointPath("s", "/api/s/s/x"))

	// Bare slug.
	assert.Equal(t, "/api/s", EndpointPath("s", "/"))
}

func TestPagePath(t *testing.T) {
	assert.Equal(t, "/hello-world/home", PagePath("hello-world", "/home"))
	assert.Equal(t, "/hello-world/home", PagePath("hello-world", "/hello-world/home"))
	assert.Equal(t, "/hello-world", PagePath("hello-world", "/"))
}

func TestReanchorPagePath(t *testing.T) {
	assert.Equal(t, "/blog/foo/bar", ReanchorPagePath("blog", "/api/foo/bar"))
	assert.Equal(t, "/blog/home", ReanchorPagePath("blog", "/home"))
	assert.Equal(t, "/blog/home", ReanchorPagePath("blog", "/api/blog/home"))
}

func TestIsAPIPath(t *testing.T) {
	assert.True(t, IsAPIPath("/api/foo"))
	assert.True(t, IsAPIPath("/api"))
	assert.False(t, IsAPIPath("/apifoo"))
	assert.False(t, IsAPIPath("/foo/api"))
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("/api/projects"))
	assert.True(t, IsReserved("/api/endpoints/abc"))
	assert.True(t, IsReserved("/api/pages/x"))
	assert.True(t, IsReserved("/api/debug/routes"))
	assert.True(t, IsReserved("/api/auth/login"))
	assert.True(t, IsReserved("/api/generate/endpoint"))
	assert.False(t, IsReserved("/api/math-utils/sum"))
	assert.False(t, IsReserved("/math-utils/sum"))
}
