package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication. Matched against the route pattern.
var publicPaths = map[string]bool{
	"/health":                             true,
	"/health/db":                          true,
	"/storage/v1/object/public/:bucket/*": true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route pattern is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
