// Package csvcollect streams a decompressed GKG record file, auto-detects
// its header row, and accumulates the four entity columns (themes, persons,
// organizations, document identifiers) into per-file bags.
package csvcollect

import (
	"encoding/csv"
	"io"
	"strings"

	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/tokenizer"
)

// Unset marks a ColumnIndices field as not yet resolved.
const Unset = -1

// Canonical GKG v2 column positions, used when no header is present and no
// index has been configured.
const (
	DefaultThemesIndex              = 7
	DefaultPersonsIndex             = 9
	DefaultOrgsIndex                = 10
	DefaultDocumentIdentifierIndex  = 4
)

// ColumnIndices holds the (possibly still-unresolved) positions of the four
// entity columns. This is per-stream state: the spec's original process-wide
// mutable table is replaced here with a value threaded through Collect, per
// §9's design note — first-successful-detection still wins within a single
// stream, and there is no cross-stream data race to reason about.
type ColumnIndices struct {
	Themes              int
	Persons             int
	Orgs                int
	DocumentIdentifier  int
}

// NewColumnIndices returns all-unset indices, ready for header detection or
// env-configured overrides.
func NewColumnIndices() ColumnIndices {
	return ColumnIndices{Themes: Unset, Persons: Unset, Orgs: Unset, DocumentIdentifier: Unset}
}

func (c ColumnIndices) withDefaults() ColumnIndices {
	if c.Themes == Unset {
		c.Themes = DefaultThemesIndex
	}
	if c.Persons == Unset {
		c.Persons = DefaultPersonsIndex
	}
	if c.Orgs == Unset {
		c.Orgs = DefaultOrgsIndex
	}
	if c.DocumentIdentifier == Unset {
		c.DocumentIdentifier = DefaultDocumentIdentifierIndex
	}
	return c
}

var headerMarkers = []string{"v2themes", "v2persons", "v2organizations", "documentidentifier"}

// Collector is the transient per-file aggregation buffer: bags of entity
// occurrences, order-irrelevant, multiplicity preserved.
type Collector struct {
	Themes              []string
	Persons             []string
	Orgs                []string
	DocumentIdentifiers []string

	RowErrors int
}

// Collect streams tab-delimited records from r, auto-detecting the header
// row on the first record and resolving column indices (header markers win
// over cfg, cfg wins over canonical defaults). Per-row errors are counted
// and skipped, never abort the stream; a read error from r fails the whole
// operation.
func Collect(r io.Reader, cfg ColumnIndices) (*Collector, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	c := &Collector{}
	headerSeen := false
	resolved := cfg

	for rowNum := 0; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if !headerSeen {
			headerSeen = true
			if idx, isHeader := detectHeader(record); isHeader {
				resolved = mergeDetected(resolved, idx)
				continue
			}
			resolved = resolved.withDefaults()
		}

		if err := c.ingestRow(record, resolved); err != nil {
			c.RowErrors++
			logger.WarnWithFields("skipping unparseable gkg row", logger.Fields{
				"row": rowNum, "error": err.Error(),
			})
			continue
		}
	}

	return c, nil
}

func (c *Collector) ingestRow(record []string, idx ColumnIndices) error {
	if themes := fieldAt(record, idx.Themes); themes != "" {
		c.Themes = append(c.Themes, tokenizer.SplitAndClean(themes)...)
	}
	if persons := fieldAt(record, idx.Persons); persons != "" {
		c.Persons = append(c.Persons, tokenizer.SplitAndClean(persons)...)
	}
	if orgs := fieldAt(record, idx.Orgs); orgs != "" {
		c.Orgs = append(c.Orgs, tokenizer.SplitAndClean(orgs)...)
	}
	if docField := fieldAt(record, idx.DocumentIdentifier); docField != "" {
		for _, id := range strings.Split(docField, "|") {
			id = strings.TrimSpace(id)
			if id != "" {
				c.DocumentIdentifiers = append(c.DocumentIdentifiers, id)
			}
		}
	}
	return nil
}

// fieldAt safely fetches record[i]; an out-of-range index yields "".
func fieldAt(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

type detectedIndex struct {
	themes, persons, orgs, documentIdentifier int
}

// detectHeader reports whether record is a header row (joined lowercased
// row contains any known marker) and, if so, the detected column positions.
func detectHeader(record []string) (detectedIndex, bool) {
	joined := strings.ToLower(strings.Join(record, " "))
	isHeader := false
	for _, m := range headerMarkers {
		if strings.Contains(joined, m) {
			isHeader = true
			break
		}
	}
	if !isHeader {
		return detectedIndex{}, false
	}

	idx := detectedIndex{
		themes:             findFirst(record, "v2themes"),
		persons:            findFirst(record, "v2persons"),
		orgs:               findFirst(record, "v2organizations"),
		documentIdentifier: findFirst(record, "documentidentifier"),
	}
	return idx, true
}

func findFirst(record []string, marker string) int {
	for i, h := range record {
		if strings.Contains(strings.ToLower(h), marker) {
			return i
		}
	}
	return Unset
}

func mergeDetected(cfg ColumnIndices, d detectedIndex) ColumnIndices {
	if d.themes != Unset {
		cfg.Themes = d.themes
	}
	if d.persons != Unset {
		cfg.Persons = d.persons
	}
	if d.orgs != Unset {
		cfg.Orgs = d.orgs
	}
	if d.documentIdentifier != Unset {
		cfg.DocumentIdentifier = d.documentIdentifier
	}
	return cfg.withDefaults()
}
