package source

import (
	"strings"

	"audioswarm/searchservice/internal/domain"
)

// Kind tags how a source's listing payload is parsed.
type Kind string

const (
	KindJSON Kind = "json"
	KindHTML Kind = "html"
)

const CharsetWindows1251 = "windows-1251"

// FieldSpec selects a value inside a result row: a CSS selector,
// optionally followed by "@attr" to read an attribute instead of the
// element text.
type FieldSpec string

type RowFields struct {
	Title     FieldSpec
	Magnet    FieldSpec
	DetailURL FieldSpec
	Size      FieldSpec
	Seeders   FieldSpec
	Leechers  FieldSpec
}

// LoginSpec describes the two-step form login of an authenticated
// source: a GET to PageURL picks up the bootstrap cookie, a POST to
// SubmitURL exchanges credentials for the session cookie set.
type LoginSpec struct {
	PageURL     string
	SubmitURL   string
	Form        map[string]string
	UserField   string
	PassField   string
	Username    string
	Password    string
	MaxAttempts int
}

// Definition is the declarative description of one external source.
// The generic engine in this package is the only code that interprets
// it; sources differ in data, not behavior.
type Definition struct {
	Name      string
	Label     string
	Disabled  bool
	Endpoints []string

	// BuildPath returns the listing path (with query string) appended
	// to each candidate endpoint.
	BuildPath func(query string, page int) string

	Kind      Kind
	ParseJSON func(payload []byte) []domain.PartialRecord
	Rows      string
	Fields    RowFields

	// DetailField pulls the magnet from a record's detail page when the
	// listing does not carry one. Empty means detail pages are scanned
	// for a raw magnet link instead.
	DetailField FieldSpec

	Charset        string
	Trackers       []string
	Login          *LoginSpec
	RequestsPerSec float64
}

func (d Definition) candidateURLs(query string, page int) []string {
	if d.BuildPath == nil {
		return nil
	}
	path := d.BuildPath(query, page)
	urls := make([]string, 0, len(d.Endpoints))
	for _, endpoint := range d.Endpoints {
		endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
		if endpoint == "" {
			continue
		}
		urls = append(urls, endpoint+path)
	}
	return urls
}
