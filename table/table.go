// Package table provides Table, a gateway to one database table whose
// fields are its physical columns plus registered many-to-many
// relationships and EAV attributes.
//
// A Table is built per unit of work and is not safe for concurrent use.
//
//	posts, err := table.New(ctx, adapter, store, "posts",
//		table.HasMany("tag_ids", "post_tags", table.ManyToManyOptions{}),
//		table.CustomizeField("title", func(f *table.Field) {
//			f.SetLabel("Headline")
//		}),
//	)
//	res, err := posts.Insert(ctx, map[string]any{"title": "Hello", "tag_ids": []int{1, 2}})
package table

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-openapi/inflect"

	"github.com/syssam/tablegate"
	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/metadata"
	"github.com/syssam/tablegate/privacy"
)

// Table is the gateway to one database table.
type Table struct {
	name    string
	adapter *db.Adapter
	store   *metadata.Store
	meta    *metadata.Table
	logger  *slog.Logger

	singularTitle string
	pluralTitle   string

	manyToMany     map[string]*ManyToMany
	manyToManyKeys []string
	eav            *Eav
	customize      map[string]func(*Field)
	providers      []fieldProvider
	fields         map[string]*Field
	policy         privacy.Policy
}

type relationshipSpec struct {
	name string
	xref string
	opts ManyToManyOptions
}

type options struct {
	relationships []relationshipSpec
	eav           *EavOptions
	customize     []customization
	singular      string
	plural        string
	logger        *slog.Logger
	policy        privacy.Policy
}

type customization struct {
	name string
	fn   func(*Field)
}

// Option configures a Table.
type Option func(*options)

// HasMany registers a many-to-many relationship called name, stored in the
// cross reference table xref. The name can then be used like a column.
func HasMany(name, xref string, opts ManyToManyOptions) Option {
	return func(o *options) {
		o.relationships = append(o.relationships, relationshipSpec{name: name, xref: xref, opts: opts})
	}
}

// RegisterEav enables EAV attributes on the table.
func RegisterEav(opts EavOptions) Option {
	return func(o *options) {
		o.eav = &opts
	}
}

// CustomizeField registers a callback run on the named field each time it
// is constructed.
func CustomizeField(name string, fn func(*Field)) Option {
	return func(o *options) {
		o.customize = append(o.customize, customization{name: name, fn: fn})
	}
}

// WithSingularTitle overrides the singular title.
func WithSingularTitle(title string) Option {
	return func(o *options) {
		o.singular = title
	}
}

// WithPluralTitle overrides the plural title.
func WithPluralTitle(title string) Option {
	return func(o *options) {
		o.plural = title
	}
}

// WithLogger sets the table's logger. Default is the adapter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPolicy sets the rules evaluated before every Insert, Update and
// Delete. A denied write fails with an error wrapping privacy.Deny.
func WithPolicy(rules ...privacy.MutationRule) Option {
	return func(o *options) {
		o.policy = append(o.policy, rules...)
	}
}

// New returns the Table called name. Metadata of the table and of the
// cross reference tables of its relationships is read from store.
func New(ctx context.Context, a *db.Adapter, store *metadata.Store, name string, opts ...Option) (*Table, error) {
	if name == "" {
		return nil, tablegate.ErrMissingTableName
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	meta, err := store.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	t := &Table{
		name:          name,
		adapter:       a,
		store:         store,
		meta:          meta,
		logger:        a.Logger(),
		singularTitle: o.singular,
		pluralTitle:   o.plural,
		manyToMany:    make(map[string]*ManyToMany),
		customize:     make(map[string]func(*Field)),
		fields:        make(map[string]*Field),
		policy:        o.policy,
	}
	if o.logger != nil {
		t.logger = o.logger
	}
	t.providers = []fieldProvider{physicalProvider{t}, manyToManyProvider{t}, eavProvider{t}}

	for _, spec := range o.relationships {
		if err := t.hasMany(ctx, spec); err != nil {
			return nil, err
		}
	}
	if o.eav != nil {
		eav, err := loadEav(ctx, a, name, t.PrimaryKey(), *o.eav)
		if err != nil {
			return nil, err
		}
		t.eav = eav
	}
	for _, c := range o.customize {
		if !meta.HasColumn(c.name) && t.manyToMany[c.name] == nil && !(t.eav != nil && t.eav.HasAttribute(c.name)) {
			return nil, fmt.Errorf("%w: %s has no column or relationship %q", tablegate.ErrUnknownField, name, c.name)
		}
		t.customize[c.name] = c.fn
	}
	return t, nil
}

func (t *Table) hasMany(ctx context.Context, spec relationshipSpec) error {
	if _, ok := t.manyToMany[spec.name]; ok || t.meta.HasColumn(spec.name) {
		return fmt.Errorf("%w: %q on %s", tablegate.ErrDuplicateRelationship, spec.name, t.name)
	}
	xref, err := t.store.Table(ctx, spec.xref)
	if err != nil {
		return err
	}
	r, err := newManyToMany(t.meta, xref, spec.name, spec.opts, t.adapter)
	if err != nil {
		return err
	}
	t.manyToMany[spec.name] = r
	t.manyToManyKeys = append(t.manyToManyKeys, spec.name)
	return nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Adapter returns the adapter the table runs on.
func (t *Table) Adapter() *db.Adapter { return t.adapter }

// Metadata returns the table's metadata artifact.
func (t *Table) Metadata() *metadata.Table { return t.meta }

// Select returns a new select bound to the table's adapter.
func (t *Table) Select() *db.Select { return t.adapter.Select() }

// SingularTitle returns the singular display name of the table.
func (t *Table) SingularTitle() string {
	switch {
	case t.singularTitle != "":
		return t.singularTitle
	case t.meta.Titles.Singular != "":
		return t.meta.Titles.Singular
	default:
		return inflectLabel(inflect.Singularize(t.name))
	}
}

// PluralTitle returns the plural display name of the table.
func (t *Table) PluralTitle() string {
	switch {
	case t.pluralTitle != "":
		return t.pluralTitle
	case t.meta.Titles.Plural != "":
		return t.meta.Titles.Plural
	default:
		return inflectLabel(inflect.Pluralize(t.name))
	}
}

// PrimaryKey returns the primary key columns in key order.
func (t *Table) PrimaryKey() []string { return t.meta.PrimaryKey() }

func (t *Table) identityColumn() (string, bool) {
	for _, c := range t.meta.Columns {
		if c.Identity {
			return c.Name, true
		}
	}
	return "", false
}

// ManyToMany returns the relationship called name.
func (t *Table) ManyToMany(name string) (*ManyToMany, bool) {
	r, ok := t.manyToMany[name]
	return r, ok
}

// ManyToManyRelationships returns the relationships in registration order.
func (t *Table) ManyToManyRelationships() []*ManyToMany {
	out := make([]*ManyToMany, len(t.manyToManyKeys))
	for i, name := range t.manyToManyKeys {
		out[i] = t.manyToMany[name]
	}
	return out
}

// HasEav reports whether EAV attributes are enabled.
func (t *Table) HasEav() bool { return t.eav != nil }

// Eav returns the EAV definition, or nil.
func (t *Table) Eav() *Eav { return t.eav }

// Field returns the field called name. Providers are asked in order:
// physical columns, many-to-many relationships, EAV attributes.
func (t *Table) Field(name string) (*Field, error) {
	if f, ok := t.fields[name]; ok {
		return f, nil
	}
	for _, p := range t.providers {
		if !p.has(name) {
			continue
		}
		f := p.instantiate(name)
		if fn, ok := t.customize[name]; ok {
			fn(f)
		}
		t.fields[name] = f
		return f, nil
	}
	return nil, tablegate.NewNotFoundErrorWithID("field", t.name+"."+name)
}

// RowColumns returns every name a row of the table accepts.
func (t *Table) RowColumns() []string {
	var names []string
	for _, p := range t.providers {
		names = append(names, p.names()...)
	}
	return names
}

func (t *Table) hasRowColumn(name string) bool {
	for _, p := range t.providers {
		if p.has(name) {
			return true
		}
	}
	return false
}

type fieldProvider interface {
	has(name string) bool
	names() []string
	instantiate(name string) *Field
}

type physicalProvider struct{ t *Table }

func (p physicalProvider) has(name string) bool { return p.t.meta.HasColumn(name) }
func (p physicalProvider) names() []string      { return p.t.meta.ColumnNames() }

func (p physicalProvider) instantiate(name string) *Field {
	c, _ := p.t.meta.Column(name)
	return newField(p.t, name, Physical, c)
}

type manyToManyProvider struct{ t *Table }

func (p manyToManyProvider) has(name string) bool {
	_, ok := p.t.manyToMany[name]
	return ok
}

func (p manyToManyProvider) names() []string { return slices.Clone(p.t.manyToManyKeys) }

func (p manyToManyProvider) instantiate(name string) *Field {
	f := newField(p.t, name, ManyToManyField, dialect.Column{TableName: p.t.name, Name: name, Nullable: true})
	f.relationship = p.t.manyToMany[name]
	return f
}

type eavProvider struct{ t *Table }

func (p eavProvider) has(name string) bool { return p.t.eav != nil && p.t.eav.HasAttribute(name) }

func (p eavProvider) names() []string {
	if p.t.eav == nil {
		return nil
	}
	names := make([]string, len(p.t.eav.attributes))
	for i, a := range p.t.eav.attributes {
		names[i] = a.Name
	}
	return names
}

func (p eavProvider) instantiate(name string) *Field {
	attr, _ := p.t.eav.Attribute(name)
	f := newField(p.t, name, EavField, attr.column(p.t.name))
	f.attribute = attr
	if attr.Label != "" {
		f.label = attr.Label
	}
	return f
}
