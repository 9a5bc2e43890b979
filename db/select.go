package db

import (
	"context"
	"regexp"
	"slices"
	"strings"
)

// Select is a mutable SELECT statement builder bound to an Adapter. Values
// are given as ? placeholders with arguments and are bound, not inlined.
//
// Conditions added with WhereConditionSet are grouped by set name: the
// conditions of one set are OR'ed, and each set is AND'ed with the other
// sets and with plain Where terms. Sets appear where they were first used.
type Select struct {
	adapter  *Adapter
	distinct bool
	options  []string
	columns  []selectColumn
	from     []fromPart
	where    []wherePart
	sets     map[string]*conditionSet
	group    []string
	having   []wherePart
	order    []string
	count    int
	offset   int
}

type selectColumn struct {
	correlation string
	expr        string
	alias       string
	raw         bool
}

type fromPart struct {
	join  string
	table string
	alias string
	on    string
}

type wherePart struct {
	conj string
	cond string
	args []any
	set  *conditionSet
}

type conditionSet struct {
	name  string
	conds []wherePart
}

func newSelect(a *Adapter) *Select {
	return &Select{adapter: a, sets: make(map[string]*conditionSet)}
}

// Clone returns a deep copy of s bound to the same adapter.
func (s *Select) Clone() *Select {
	c := *s
	c.options = slices.Clone(s.options)
	c.columns = slices.Clone(s.columns)
	c.from = slices.Clone(s.from)
	c.group = slices.Clone(s.group)
	c.having = cloneWhere(s.having, nil)
	c.order = slices.Clone(s.order)
	c.sets = make(map[string]*conditionSet, len(s.sets))
	for name, set := range s.sets {
		c.sets[name] = &conditionSet{name: set.name, conds: cloneWhere(set.conds, nil)}
	}
	c.where = cloneWhere(s.where, c.sets)
	return &c
}

func cloneWhere(parts []wherePart, sets map[string]*conditionSet) []wherePart {
	if parts == nil {
		return nil
	}
	out := make([]wherePart, len(parts))
	for i, w := range parts {
		w.args = slices.Clone(w.args)
		if w.set != nil {
			w.set = sets[w.set.name]
		}
		out[i] = w
	}
	return out
}

var (
	aliasRe  = regexp.MustCompile(`(?i)^(.+?)\s+AS\s+(\S+)$`)
	orderRe  = regexp.MustCompile(`(?i)^(.+?)\s+(ASC|DESC)$`)
	isExprRe = regexp.MustCompile(`\(.*\)`)
)

// Adapter returns the adapter the select is bound to.
func (s *Select) Adapter() *Adapter { return s.adapter }

// Distinct makes the select return distinct rows.
func (s *Select) Distinct() *Select {
	s.distinct = true
	return s
}

// Option adds a query modifier rendered right after SELECT, such as
// SQL_CALC_FOUND_ROWS. Adding the same option twice has no effect.
func (s *Select) Option(opt string) *Select {
	for _, o := range s.options {
		if strings.EqualFold(o, opt) {
			return s
		}
	}
	s.options = append(s.options, opt)
	return s
}

// HasOption reports whether opt was added with Option.
func (s *Select) HasOption(opt string) bool {
	for _, o := range s.options {
		if strings.EqualFold(o, opt) {
			return true
		}
	}
	return false
}

// From sets the main table. The table may carry an alias ("users AS u").
// Without columns, all columns of the table are selected.
func (s *Select) From(table string, cols ...string) *Select {
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	return s.join("", table, "", cols)
}

// Join adds an INNER JOIN. Columns are selected only when given.
func (s *Select) Join(table, on string, cols ...string) *Select {
	return s.join("INNER JOIN", table, on, cols)
}

// JoinLeft adds a LEFT JOIN. Columns are selected only when given.
func (s *Select) JoinLeft(table, on string, cols ...string) *Select {
	return s.join("LEFT JOIN", table, on, cols)
}

func (s *Select) join(kind, table, on string, cols []string) *Select {
	name, alias := splitAlias(table)
	s.from = append(s.from, fromPart{join: kind, table: name, alias: alias, on: on})
	return s.ColumnsFor(correlationName(name, alias), cols...)
}

// Columns adds columns of the main table. Columns containing parentheses
// are treated as expressions and are not quoted. A column may carry an
// alias ("COUNT(*) AS total").
func (s *Select) Columns(cols ...string) *Select {
	correlation := ""
	if len(s.from) > 0 {
		correlation = correlationName(s.from[0].table, s.from[0].alias)
	}
	return s.ColumnsFor(correlation, cols...)
}

// ColumnsFor adds columns qualified by correlation.
func (s *Select) ColumnsFor(correlation string, cols ...string) *Select {
	for _, col := range cols {
		expr, alias := splitAlias(col)
		c := selectColumn{correlation: correlation, expr: expr, alias: alias}
		if isExprRe.MatchString(expr) {
			c.raw = true
			c.correlation = ""
		} else if strings.Contains(expr, ".") {
			c.correlation = ""
		}
		s.columns = append(s.columns, c)
	}
	return s
}

// Where adds a condition AND'ed with the previous ones.
func (s *Select) Where(cond string, args ...any) *Select {
	s.where = append(s.where, wherePart{conj: "AND", cond: cond, args: args})
	return s
}

// OrWhere adds a condition OR'ed with the previous ones.
func (s *Select) OrWhere(cond string, args ...any) *Select {
	s.where = append(s.where, wherePart{conj: "OR", cond: cond, args: args})
	return s
}

// WhereConditionSet adds cond to the named condition set.
func (s *Select) WhereConditionSet(name, cond string, args ...any) *Select {
	set, ok := s.sets[name]
	if !ok {
		set = &conditionSet{name: name}
		s.sets[name] = set
		s.where = append(s.where, wherePart{conj: "AND", set: set})
	}
	set.conds = append(set.conds, wherePart{cond: cond, args: args})
	return s
}

// ConditionSets returns the names of the condition sets in use.
func (s *Select) ConditionSets() []string {
	var names []string
	for _, w := range s.where {
		if w.set != nil {
			names = append(names, w.set.name)
		}
	}
	return names
}

// Group adds GROUP BY columns.
func (s *Select) Group(cols ...string) *Select {
	s.group = append(s.group, cols...)
	return s
}

// Having adds a HAVING condition AND'ed with the previous ones.
func (s *Select) Having(cond string, args ...any) *Select {
	s.having = append(s.having, wherePart{conj: "AND", cond: cond, args: args})
	return s
}

// Order adds ORDER BY terms such as "name" or "created DESC".
func (s *Select) Order(specs ...string) *Select {
	s.order = append(s.order, specs...)
	return s
}

// Limit sets the row count and offset. A count of zero removes the limit.
func (s *Select) Limit(count, offset int) *Select {
	s.count = max(count, 0)
	s.offset = max(offset, 0)
	return s
}

// LimitPage limits the select to the given 1-based page.
func (s *Select) LimitPage(page, rowCount int) *Select {
	page = max(page, 1)
	rowCount = max(rowCount, 1)
	return s.Limit(rowCount, rowCount*(page-1))
}

// LimitCount returns the row count set by Limit, or 0.
func (s *Select) LimitCount() int { return s.count }

// LimitOffset returns the offset set by Limit.
func (s *Select) LimitOffset() int { return s.offset }

// QuoteWithAlias quotes column qualified by the table correlation name.
func (s *Select) QuoteWithAlias(correlation, column string) string {
	if correlation == "" {
		return s.adapter.quoteIdentifierAs(column, "", true)
	}
	return s.adapter.quoteIdentifierAs(correlation+"."+column, "", true)
}

// Assemble renders the statement and its arguments in placeholder order.
func (s *Select) Assemble() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT")
	if s.distinct {
		b.WriteString(" DISTINCT")
	}
	for _, o := range s.options {
		b.WriteString(" " + o)
	}
	b.WriteString(" " + s.renderColumns())
	for i, f := range s.from {
		table := s.adapter.quoteIdentifierAs(f.table, f.alias, true)
		switch {
		case i == 0:
			b.WriteString(" FROM " + table)
		case f.join == "":
			b.WriteString(", " + table)
		default:
			b.WriteString(" " + f.join + " " + table)
			if f.on != "" {
				b.WriteString(" ON " + f.on)
			}
		}
	}
	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		args = s.renderWhere(&b, s.where, args)
	}
	if len(s.group) > 0 {
		terms := make([]string, len(s.group))
		for i, g := range s.group {
			terms[i] = s.quoteTerm(g)
		}
		b.WriteString(" GROUP BY " + strings.Join(terms, ", "))
	}
	if len(s.having) > 0 {
		b.WriteString(" HAVING ")
		args = s.renderWhere(&b, s.having, args)
	}
	if len(s.order) > 0 {
		terms := make([]string, len(s.order))
		for i, o := range s.order {
			dir := ""
			if m := orderRe.FindStringSubmatch(strings.TrimSpace(o)); m != nil {
				o, dir = m[1], " "+strings.ToUpper(m[2])
			}
			terms[i] = s.quoteTerm(o) + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	query := b.String()
	if s.count > 0 {
		// Count and offset are clamped by Limit, so this cannot fail.
		query, _ = s.adapter.Limit(query, s.count, s.offset)
	}
	return query, args
}

func (s *Select) renderColumns() string {
	if len(s.columns) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		var col string
		switch {
		case c.raw:
			col = c.expr
		case c.expr == "*":
			col = "*"
			if c.correlation != "" {
				col = s.adapter.quoteIdentifierAs(c.correlation, "", true) + ".*"
			}
		case c.correlation != "":
			col = s.adapter.quoteIdentifierAs(c.correlation+"."+c.expr, "", true)
		default:
			col = s.adapter.quoteIdentifierAs(c.expr, "", true)
		}
		if c.alias != "" && !(c.alias == lastSegment(c.expr) && !c.raw) {
			col += " AS " + s.adapter.quoteIdentifierInternal(c.alias, true)
		}
		parts = append(parts, col)
	}
	return strings.Join(parts, ", ")
}

func (s *Select) renderWhere(b *strings.Builder, parts []wherePart, args []any) []any {
	for i, w := range parts {
		if i > 0 {
			b.WriteString(" " + w.conj + " ")
		}
		if w.set == nil {
			b.WriteString("(" + w.cond + ")")
			args = append(args, w.args...)
			continue
		}
		b.WriteString("(")
		for j, c := range w.set.conds {
			if j > 0 {
				b.WriteString(" OR ")
			}
			b.WriteString("(" + c.cond + ")")
			args = append(args, c.args...)
		}
		b.WriteString(")")
	}
	return args
}

func (s *Select) quoteTerm(term string) string {
	term = strings.TrimSpace(term)
	if isExprRe.MatchString(term) {
		return term
	}
	return s.adapter.quoteIdentifierAs(term, "", true)
}

// String returns the statement with its arguments quoted inline.
func (s *Select) String() string {
	query, args := s.Assemble()
	return s.adapter.Interpolate(query, args...)
}

// All runs the select and returns every row.
func (s *Select) All(ctx context.Context) ([]map[string]any, error) {
	query, args := s.Assemble()
	return s.adapter.FetchAll(ctx, query, args...)
}

// Row runs the select and returns the first row, or nil.
func (s *Select) Row(ctx context.Context) (map[string]any, error) {
	query, args := s.Assemble()
	return s.adapter.FetchRow(ctx, query, args...)
}

// One runs the select and returns the first column of the first row.
func (s *Select) One(ctx context.Context) (any, error) {
	query, args := s.Assemble()
	return s.adapter.FetchOne(ctx, query, args...)
}

// Col runs the select and returns its first column.
func (s *Select) Col(ctx context.Context) ([]any, error) {
	query, args := s.Assemble()
	return s.adapter.FetchCol(ctx, query, args...)
}

// Pairs runs the select and returns its first two columns as pairs.
func (s *Select) Pairs(ctx context.Context) ([]Pair, error) {
	query, args := s.Assemble()
	return s.adapter.FetchPairs(ctx, query, args...)
}

func splitAlias(s string) (name, alias string) {
	s = strings.TrimSpace(s)
	if m := aliasRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), m[2]
	}
	return s, ""
}

func correlationName(table, alias string) string {
	if alias != "" {
		return alias
	}
	return lastSegment(table)
}

func lastSegment(ident string) string {
	if i := strings.LastIndexByte(ident, '.'); i >= 0 {
		return ident[i+1:]
	}
	return ident
}

