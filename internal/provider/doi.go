// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"net/url"
	"regexp"
	"strings"
)

// doiRe matches a DOI with or without a "doi:" scheme or a doi.org URL
// prefix. The capture group holds the bare DOI.
var doiRe = regexp.MustCompile(`(?i)^(?:doi:\s*|(?:https?://)?(?:dx\.)?doi\.org/)?(10\.\d+(?:\.\d+)*/\S+)$`)

// ParseDOI extracts the bare DOI from an identifier written as a plain
// DOI, a "doi:" reference, or a doi.org URL. The second return value
// reports whether the identifier is a DOI at all.
func ParseDOI(identifier string) (string, bool) {
	m := doiRe.FindStringSubmatch(strings.TrimSpace(identifier))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsDOI reports whether the identifier is a DOI in any accepted spelling.
func IsDOI(identifier string) bool {
	_, ok := ParseDOI(identifier)
	return ok
}

// IsRecordURL reports whether the URL points at the registry, on either
// the main or the sandbox deployment.
func IsRecordURL(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "zenodo.org" || strings.HasSuffix(host, ".zenodo.org")
}

// RecordID extracts the record identifier from a registry URL or returns
// a bare identifier unchanged.
func RecordID(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	p := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	if p != "" {
		return p
	}
	return uri
}
