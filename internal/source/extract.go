package source

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"audioswarm/searchservice/internal/domain"
)

// ExtractRows applies a definition's row selector and field specs to a
// listing payload. Rows without a title are skipped so one malformed
// row never sinks the whole page.
func ExtractRows(def Definition, payload []byte, base string) []domain.PartialRecord {
	if def.Kind == KindJSON {
		if def.ParseJSON == nil {
			return nil
		}
		records := def.ParseJSON(payload)
		out := records[:0]
		for _, record := range records {
			if strings.TrimSpace(record.Title) == "" {
				continue
			}
			record.Source = def.Name
			out = append(out, record)
		}
		return out
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	var records []domain.PartialRecord
	doc.Find(def.Rows).Each(func(_ int, row *goquery.Selection) {
		title := CleanHTMLText(extractField(row, def.Fields.Title))
		if title == "" {
			return
		}
		sizeText := CleanHTMLText(extractField(row, def.Fields.Size))
		records = append(records, domain.PartialRecord{
			Title:     title,
			Magnet:    strings.TrimSpace(extractField(row, def.Fields.Magnet)),
			DetailURL: absURL(base, strings.TrimSpace(extractField(row, def.Fields.DetailURL))),
			Size:      sizeText,
			SizeBytes: ParseHumanSize(sizeText),
			Seeders:   parseCount(extractField(row, def.Fields.Seeders)),
			Leechers:  parseCount(extractField(row, def.Fields.Leechers)),
			Source:    def.Name,
		})
	})
	return records
}

func extractField(row *goquery.Selection, field FieldSpec) string {
	spec := strings.TrimSpace(string(field))
	if spec == "" {
		return ""
	}
	selector, attr, hasAttr := strings.Cut(spec, "@")
	target := row
	if selector = strings.TrimSpace(selector); selector != "" {
		target = row.Find(selector)
	}
	if hasAttr {
		value, _ := target.Attr(strings.TrimSpace(attr))
		return value
	}
	return target.Text()
}

func absURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
