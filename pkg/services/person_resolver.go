package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bddaily/bddaily-server/pkg/cache"
	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/jsonutil"
	"github.com/bddaily/bddaily-server/pkg/mapping"
	"github.com/bddaily/bddaily-server/pkg/models"
)

// personIDKeys are the members a person cell may carry its user id under.
var personIDKeys = []string{"id", "user_id", "open_id", "union_id"}

// PersonScope names the person column an index is built from.
type PersonScope struct {
	Table     feishu.Table
	FieldName string
}

func (s PersonScope) key() string {
	return s.Table.Key() + ":" + s.FieldName
}

// PersonEntry is one display name and the user id first seen for it.
type PersonEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// PersonIndex maps display names to user ids, in first-seen order.
type PersonIndex struct {
	Entries []PersonEntry `json:"entries"`
}

// Lookup returns the user id for name.
func (p PersonIndex) Lookup(name string) (string, bool) {
	for _, e := range p.Entries {
		if e.Name == name {
			return e.ID, true
		}
	}
	return "", false
}

// Names returns the known display names in index order.
func (p PersonIndex) Names() []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Name
	}
	return names
}

// BuildPersonIndex collects name -> id pairs from a person column. The first id
// seen for a name wins; cells that are not lists are skipped.
func BuildPersonIndex(records []feishu.Record, fieldName string) PersonIndex {
	idx := PersonIndex{Entries: []PersonEntry{}}
	seen := make(map[string]bool)

	for _, rec := range records {
		people, ok := mapping.CellsOf(rec).Get(fieldName).Items()
		if !ok {
			continue
		}
		for _, person := range people {
			name := strings.TrimSpace(memberString(person, "name"))
			id := pickPersonID(person)
			if name == "" || id == "" || seen[name] {
				continue
			}
			seen[name] = true
			idx.Entries = append(idx.Entries, PersonEntry{Name: name, ID: id})
		}
	}
	return idx
}

// pickPersonID reads the first non-null id member of a person object.
func pickPersonID(person feishu.Value) string {
	for _, key := range personIDKeys {
		if v, ok := person.Member(key); ok {
			return strings.TrimSpace(mapping.ScalarString(v))
		}
	}
	return ""
}

func memberString(v feishu.Value, key string) string {
	m, ok := v.Member(key)
	if !ok {
		return ""
	}
	return mapping.ScalarString(m)
}

// SortNames orders display names the way a zh-CN locale compare does.
func SortNames(names []string) []string {
	out := append([]string(nil), names...)
	// Collators are not safe for concurrent use; build one per call.
	collate.New(language.Chinese).SortStrings(out)
	return out
}

// SortEntries orders entries by name with SortNames' collation.
func SortEntries(entries []PersonEntry) []PersonEntry {
	out := append([]PersonEntry(nil), entries...)
	c := collate.New(language.Chinese)
	byName := make(map[string]int, len(out))
	names := make([]string, len(out))
	for i, e := range out {
		names[i] = e.Name
		byName[e.Name] = i
	}
	c.SortStrings(names)

	sorted := make([]PersonEntry, 0, len(out))
	for _, n := range names {
		sorted = append(sorted, out[byName[n]])
	}
	return sorted
}

// UnresolvedPersonError is returned when a person name cannot be mapped to a
// user id. KnownNames lists the names that could have been used instead.
type UnresolvedPersonError struct {
	Field      string
	Input      string
	KnownNames []string
	// CrossTable is set when the lookup also consulted the project table.
	CrossTable bool
}

func (e *UnresolvedPersonError) Error() string {
	where := "飞书表"
	if e.CrossTable {
		where = "飞书表/项目表"
	}
	return fmt.Sprintf("无法解析人员字段 %s='%s'（请确保该人员在%s里出现过一次，或配置 FEISHU_PERSON_ID_MAP）",
		e.Field, e.Input, where)
}

// PersonResolver maps display names to Feishu user references.
// Static overrides win over names discovered by scanning records.
type PersonResolver struct {
	client    BitableClient
	overrides map[string]string
	indexes   *cache.Group[PersonIndex]
	scanSize  int
	tables    Tables
	logger    *zap.Logger
}

// NewPersonResolver creates a resolver. overrides is the parsed name -> id map
// from configuration and never expires.
func NewPersonResolver(
	client BitableClient,
	overrides map[string]string,
	store cache.Store,
	ttl time.Duration,
	scanSize int,
	tables Tables,
	logger *zap.Logger,
) *PersonResolver {
	if overrides == nil {
		overrides = map[string]string{}
	}
	return &PersonResolver{
		client:    client,
		overrides: overrides,
		indexes:   cache.NewGroup[PersonIndex]("persons", store, ttl, logger),
		scanSize:  scanSize,
		tables:    tables,
		logger:    logger.Named("persons"),
	}
}

// Overrides returns the static name -> id map.
func (r *PersonResolver) Overrides() map[string]string {
	return r.overrides
}

// Index returns the cached person index for scope, scanning one page of
// records when it is missing or expired.
func (r *PersonResolver) Index(ctx context.Context, scope PersonScope) (PersonIndex, error) {
	return r.indexes.Get(ctx, scope.key(), func(ctx context.Context) (PersonIndex, error) {
		records, err := r.client.ListRecords(ctx, scope.Table, r.scanSize)
		if err != nil {
			return PersonIndex{}, fmt.Errorf("scan %s: %w", scope.FieldName, err)
		}
		idx := BuildPersonIndex(records, scope.FieldName)
		r.logger.Debug("Rebuilt person index",
			zap.String("table", scope.Table.TableID),
			zap.String("field", scope.FieldName),
			zap.Int("names", len(idx.Entries)))
		return idx, nil
	})
}

// KnownNames returns the names of scope's index in collation order.
func (r *PersonResolver) KnownNames(ctx context.Context, scope PersonScope) ([]string, error) {
	idx, err := r.Index(ctx, scope)
	if err != nil {
		return nil, err
	}
	return SortNames(idx.Names()), nil
}

// Resolve turns input into a person cell value. A list is passed through as
// already resolved. A name resolves through the overrides, then scope's index.
// The bool is false when the name is blank or unknown.
func (r *PersonResolver) Resolve(ctx context.Context, scope PersonScope, input jsonutil.Value) (any, bool, error) {
	if input.IsList() {
		return input.Interface(), true, nil
	}
	return r.ResolveName(ctx, scope, input.Text())
}

// ResolveName is Resolve for a plain display name.
func (r *PersonResolver) ResolveName(ctx context.Context, scope PersonScope, name string) (any, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, nil
	}

	if id := strings.TrimSpace(r.overrides[name]); id != "" {
		return []feishu.PersonRef{{ID: id}}, true, nil
	}

	idx, err := r.Index(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	id, ok := idx.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	return []feishu.PersonRef{{ID: id}}, true, nil
}

// ResolveCustomerBD resolves a customer's BD owner. The customer table's own
// "主BD负责人" column is tried first; the project table's BD column is the
// fallback because it usually has richer person data. On failure the error
// carries the merged known names of every index consulted.
func (r *PersonResolver) ResolveCustomerBD(ctx context.Context, name string) (any, error) {
	scopes := []PersonScope{{Table: r.tables.Customer, FieldName: models.CustomerField.BDOwner}}
	if r.tables.Project.Configured() {
		scopes = append(scopes, PersonScope{Table: r.tables.Project, FieldName: models.ProjectField.BD})
	}

	var known []string
	seen := make(map[string]bool)
	for _, scope := range scopes {
		value, ok, err := r.ResolveName(ctx, scope, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return value, nil
		}

		names, err := r.KnownNames(ctx, scope)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				known = append(known, n)
			}
		}
	}

	return nil, &UnresolvedPersonError{
		Field:      "BD",
		Input:      strings.TrimSpace(name),
		KnownNames: SortNames(known),
		CrossTable: len(scopes) > 1,
	}
}

// unresolved builds an UnresolvedPersonError with scope's known names.
func (r *PersonResolver) unresolved(ctx context.Context, scope PersonScope, field, input string) error {
	names, err := r.KnownNames(ctx, scope)
	if err != nil {
		return err
	}
	return &UnresolvedPersonError{Field: field, Input: strings.TrimSpace(input), KnownNames: names}
}
