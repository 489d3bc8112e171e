package htsserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jdidion/htsget-server/internal/htserror"
)

// The protocol version this server implements.
var supportedVersion = [3]int{1, 1, 0}

var ticketContentType = fmt.Sprintf(
	"application/vnd.ga4gh.htsget.v%d.%d.%d+json; charset=utf-8",
	supportedVersion[0], supportedVersion[1], supportedVersion[2])

const (
	mediaTypePrefix = "application/"
	versionPrefix   = "vnd.ga4gh.htsget.v"
	versionSuffix   = "+json"
)

// checkAccept validates the Accept header before routing. An absent
// header is accepted. A present header must name either plain JSON or a
// versioned htsget media type whose version this server can serve:
// equal-or-newer within the supported major version. Older versions and
// newer majors are rejected; forward compatibility is assumed only
// within a major version.
func checkAccept(accept string) error {
	if accept == "" {
		return nil
	}
	if !strings.HasPrefix(accept, mediaTypePrefix) {
		return htserror.UnsupportedMediaType(accept)
	}
	rest := strings.ToLower(accept[len(mediaTypePrefix):])
	if rest == "json" {
		return nil
	}
	if !strings.HasPrefix(rest, versionPrefix) || !strings.HasSuffix(rest, versionSuffix) {
		return htserror.UnsupportedMediaType(accept)
	}
	version, err := parseVersion(rest[len(versionPrefix) : len(rest)-len(versionSuffix)])
	if err != nil {
		return htserror.UnsupportedMediaType(accept)
	}
	if lessThan(version, supportedVersion) || version[0] > supportedVersion[0] {
		return htserror.UnsupportedMediaType(accept)
	}
	return nil
}

func parseVersion(s string) ([3]int, error) {
	var version [3]int
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return version, fmt.Errorf("expected three version components, got %d", len(parts))
	}
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			return version, err
		}
		version[i] = value
	}
	return version, nil
}

// lessThan compares version triples lexicographically.
func lessThan(a, b [3]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
