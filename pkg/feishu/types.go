package feishu

import (
	"fmt"
	"strings"
)

// Table addresses one Bitable table.
type Table struct {
	AppToken string `json:"appToken"`
	TableID  string `json:"tableId"`
}

// Configured reports whether both coordinates are set.
func (t Table) Configured() bool {
	return strings.TrimSpace(t.AppToken) != "" && strings.TrimSpace(t.TableID) != ""
}

// Key identifies the table in cache keys.
func (t Table) Key() string {
	return t.AppToken + ":" + t.TableID
}

// Field is one column definition.
type Field struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

// Record is one table row. Fields are keyed by column display name.
type Record struct {
	RecordID string           `json:"record_id"`
	Fields   map[string]Value `json:"fields"`
}

// Fields is a write payload keyed by column display name.
type Fields map[string]any

// PersonRef references a Feishu user in a person column write.
type PersonRef struct {
	ID string `json:"id"`
}

// APIError is a non-zero code in a Feishu response envelope.
type APIError struct {
	Code       int
	Msg        string
	HTTPStatus int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu %s failed: code=%d msg=%s (http %d)", e.Path, e.Code, e.Msg, e.HTTPStatus)
}

// envelope is the common Feishu response wrapper.
type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

type fieldPage struct {
	Items     []Field `json:"items"`
	HasMore   bool    `json:"has_more"`
	PageToken string  `json:"page_token"`
	Total     int     `json:"total"`
}

type recordPage struct {
	Items     []Record `json:"items"`
	HasMore   bool     `json:"has_more"`
	PageToken string   `json:"page_token"`
	Total     int      `json:"total"`
}

type recordsData struct {
	Records []Record `json:"records"`
}

type recordData struct {
	Record Record `json:"record"`
}

type createRecord struct {
	Fields Fields `json:"fields"`
}
