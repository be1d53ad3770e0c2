package mapping

import (
	"sort"
	"strings"
	"unicode"

	"github.com/bddaily/bddaily-server/pkg/feishu"
)

// Cells is a record's field map with label lookups that tolerate whitespace
// drift, e.g. "公司总部 地区" answers a lookup for "公司总部地区".
type Cells map[string]feishu.Value

// CellsOf returns the cells of rec.
func CellsOf(rec feishu.Record) Cells {
	return Cells(rec.Fields)
}

// Get returns the cell under label. An exact key wins; otherwise keys are
// compared with all whitespace removed, in sorted key order.
func (c Cells) Get(label string) feishu.Value {
	if v, ok := c[label]; ok {
		return v
	}

	target := CompactName(label)
	if target == "" {
		return feishu.Null()
	}

	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if CompactName(k) == target {
			return c[k]
		}
	}
	return feishu.Null()
}

// First returns the first truthy cell among labels, like chained "||".
// When none is truthy the result is null.
func (c Cells) First(labels ...string) feishu.Value {
	for _, label := range labels {
		if v := c.Get(label); Truthy(v) {
			return v
		}
	}
	return feishu.Null()
}

// Coalesce returns the first non-null cell among labels, like chained "??".
func (c Cells) Coalesce(labels ...string) feishu.Value {
	for _, label := range labels {
		if v := c.Get(label); !v.IsNull() {
			return v
		}
	}
	return feishu.Null()
}

// Text returns the display string of the first truthy cell among labels.
func (c Cells) Text(labels ...string) string {
	return strings.TrimSpace(NormalizeAny(c.First(labels...)))
}

// Identifier resolves a business id: the labelled cells first, then a generic
// "id" cell, then the vendor record id.
func Identifier(rec feishu.Record, labels ...string) string {
	cells := CellsOf(rec)
	candidates := append(append([]string{}, labels...), "id")
	if id := cells.Text(candidates...); id != "" {
		return id
	}
	return strings.TrimSpace(rec.RecordID)
}

// CompactName strips every whitespace rune from a column label.
func CompactName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
