// Package trend holds the domain types shared by the collector, aggregator,
// scorer, store and HTTP layers: Keyword, Trend, and the small enums that
// key a Trend document.
package trend

import (
	"encoding/json"
	"time"
)

// Type is the kind of snapshot a Trend represents.
type Type string

const (
	TypeRealtime Type = "realtime"
	TypeDaily    Type = "daily"
	TypeRanked   Type = "ranked"
)

// Category is the entity class a Trend's keywords were extracted from.
type Category string

const (
	CategoryThemes    Category = "themes"
	CategoryPersons   Category = "persons"
	CategoryOrgs      Category = "orgs"
	CategoryDocuments Category = "documents"
	CategoryAll       Category = "all"
)

// Categories lists the three entity categories the Collector extracts
// (CategoryDocuments and CategoryAll are handled separately).
var Categories = []Category{CategoryThemes, CategoryPersons, CategoryOrgs}

// Keyword is a single ranked (or ranking-eligible) term.
type Keyword struct {
	Word      string          `bson:"word" json:"word"`
	Count     int             `bson:"count" json:"count"`
	Score     *int            `bson:"score,omitempty" json:"score,omitempty"`
	Documents map[string]bool `bson:"-" json:"-"`
}

// DocumentIDs returns the keyword's document set as a sorted-free slice.
func (k Keyword) DocumentIDs() []string {
	if len(k.Documents) == 0 {
		return nil
	}
	out := make([]string, 0, len(k.Documents))
	for id := range k.Documents {
		out = append(out, id)
	}
	return out
}

type keywordWire struct {
	Word      string   `json:"word"`
	Count     int      `json:"count"`
	Score     *int     `json:"score,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

// MarshalJSON flattens Documents to a string array so cached/served payloads
// round-trip the document set rather than dropping it.
func (k Keyword) MarshalJSON() ([]byte, error) {
	return json.Marshal(keywordWire{Word: k.Word, Count: k.Count, Score: k.Score, Documents: k.DocumentIDs()})
}

func (k *Keyword) UnmarshalJSON(data []byte) error {
	var w keywordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	k.Word, k.Count, k.Score = w.Word, w.Count, w.Score
	if len(w.Documents) > 0 {
		k.Documents = make(map[string]bool, len(w.Documents))
		for _, id := range w.Documents {
			k.Documents[id] = true
		}
	} else {
		k.Documents = nil
	}
	return nil
}

// Trend is a materialized aggregation keyed by (Type, Date, Category).
type Trend struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Type      Type      `bson:"type" json:"type"`
	Date      string    `bson:"date" json:"date"` // ISO YYYY-MM-DD, UTC
	Category  Category  `bson:"category" json:"category"`
	Keywords  []Keyword `bson:"keywords" json:"keywords"`
}

// Key identifies a Trend's upsert key.
type Key struct {
	Type     Type
	Date     string
	Category Category
}

func (t Trend) Key() Key {
	return Key{Type: t.Type, Date: t.Date, Category: t.Category}
}

// ISODate formats ts as the UTC calendar day used for Trend.Date.
func ISODate(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
