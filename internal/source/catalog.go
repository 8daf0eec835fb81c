package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"audioswarm/searchservice/internal/app"
	"audioswarm/searchservice/internal/domain"
	"audioswarm/searchservice/internal/search"
)

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

// Bootstrap registers the built-in sources against the registry.
func Bootstrap(registry *Registry, cfg app.Config) {
	registry.Register(jsonBayDefinition(cfg))
	registry.Register(audioNexusDefinition(cfg))
	registry.Register(trackerHQDefinition(cfg))
}

// jsonbay is an apibay-style JSON index: a flat array of records with
// the info hash inline, so no detail resolution is ever needed.
func jsonBayDefinition(cfg app.Config) Definition {
	return Definition{
		Name:      "jsonbay",
		Label:     "JSONBay",
		Endpoints: splitEndpoints(cfg.JSONBayEndpoint),
		BuildPath: func(query string, page int) string {
			return "?q=" + url.QueryEscape(query) + "&cat=100"
		},
		Kind:           KindJSON,
		ParseJSON:      parseJSONBay,
		Trackers:       defaultTrackers,
		RequestsPerSec: 4,
	}
}

type jsonBayEntry struct {
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
	Size     string `json:"size"`
}

func parseJSONBay(payload []byte) []domain.PartialRecord {
	var entries []jsonBayEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil
	}
	records := make([]domain.PartialRecord, 0, len(entries))
	for _, entry := range entries {
		hash := search.NormalizeInfoHash(entry.InfoHash)
		// The index answers empty queries with a single placeholder row.
		if entry.Name == "No results returned" || strings.Trim(hash, "0") == "" {
			continue
		}
		sizeBytes, _ := strconv.ParseInt(entry.Size, 10, 64)
		records = append(records, domain.PartialRecord{
			Title:     entry.Name,
			Magnet:    search.BuildMagnet(hash, entry.Name, defaultTrackers),
			SizeBytes: sizeBytes,
			Seeders:   parseCount(entry.Seeders),
			Leechers:  parseCount(entry.Leechers),
		})
	}
	return records
}

// audionexus is a mirror-rotating HTML listing whose rows link to a
// detail page carrying the magnet.
func audioNexusDefinition(cfg app.Config) Definition {
	return Definition{
		Name:      "audionexus",
		Label:     "AudioNexus",
		Endpoints: splitEndpoints(cfg.AudioNexusEndpoint),
		BuildPath: func(query string, page int) string {
			if page < 1 {
				page = 1
			}
			return fmt.Sprintf("/search/%s/%d/", url.PathEscape(query), page)
		},
		Kind: KindHTML,
		Rows: "table.table-list tbody tr",
		Fields: RowFields{
			Title:     "td.name a:nth-of-type(2)",
			DetailURL: "td.name a:nth-of-type(2)@href",
			Size:      "td.size",
			Seeders:   "td.seeds",
			Leechers:  "td.leeches",
		},
		DetailField:    `a[href^="magnet:"]@href`,
		Trackers:       defaultTrackers,
		RequestsPerSec: 2,
	}
}

// trackerhq is a forum-style tracker: windows-1251 pages, cookie login
// and magnets only on topic pages.
func trackerHQDefinition(cfg app.Config) Definition {
	base := strings.TrimRight(strings.TrimSpace(cfg.TrackerHQEndpoint), "/")
	def := Definition{
		Name:      "trackerhq",
		Label:     "TrackerHQ",
		Endpoints: []string{base},
		BuildPath: func(query string, page int) string {
			if page < 1 {
				page = 1
			}
			return "/tracker.php?nm=" + url.QueryEscape(query) + "&start=" + strconv.Itoa((page-1)*50)
		},
		Kind: KindHTML,
		Rows: "tr.tCenter",
		Fields: RowFields{
			Title:     "a.topictitle",
			DetailURL: "a.topictitle@href",
			Size:      "td.tor-size",
			Seeders:   "b.seedmed",
			Leechers:  "td.leechmed",
		},
		DetailField:    `a[href^="magnet:"]@href`,
		Charset:        CharsetWindows1251,
		Trackers:       defaultTrackers,
		RequestsPerSec: 1,
	}
	if cfg.TrackerHQUsername != "" && cfg.TrackerHQPassword != "" {
		def.Login = &LoginSpec{
			PageURL:   base + "/login.php",
			SubmitURL: base + "/login.php",
			Form:      map[string]string{"login": "entry"},
			UserField: "login_username",
			PassField: "login_password",
			Username:  cfg.TrackerHQUsername,
			Password:  cfg.TrackerHQPassword,
		}
	} else {
		// Without credentials the forum only serves the login page.
		def.Disabled = true
	}
	return def
}

func splitEndpoints(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}
