package routing

import (
	"net/http"
	"strings"
)

// NormalizeHost strips the port from host and lower-cases it.
// IPv6 literals keep their brackets.
//
//	"Example.COM:8080" -> "example.com"
//	"[::1]:8080"       -> "[::1]"
func NormalizeHost(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	return strings.ToLower(host)
}

// SplitSubdomain returns the part of host in front of serverName.
// ok is false when host is not serverName or one of its subdomains.
//
//	SplitSubdomain("api.example.com", "example.com") // "api", true
//	SplitSubdomain("example.com", "example.com")     // "", true
//	SplitSubdomain("other.com", "example.com")       // "", false
func SplitSubdomain(host, serverName string) (string, bool) {
	host = NormalizeHost(host)
	base := NormalizeHost(serverName)
	if host == base {
		return "", true
	}
	if sub, found := strings.CutSuffix(host, "."+base); found {
		return sub, true
	}
	return "", false
}

// requestScheme reports the scheme the server saw. Forwarded headers are
// not trusted here; put a proxy-aware middleware in front of the app.
func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
