// Package sqlite implements the SQLite driver on top of modernc.org/sqlite.
// Importing it registers the driver under dialect.SQLite.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
)

func init() {
	db.Register(dialect.SQLite, db.Registration{
		SQLDriver: "sqlite",
		DSN:       DSN,
		New: func(s sql.Session, logger *slog.Logger) db.Driver {
			return New(s, logger)
		},
	})
}

// DSN returns the database path with Params as query parameters. An empty
// path opens an in-memory database.
//
//	DSN(db.ConnConfig{Database: "app.db", Params: map[string]string{"_pragma": "foreign_keys(1)"}})
//	// file:app.db?_pragma=foreign_keys%281%29
func DSN(cc db.ConnConfig) string {
	path := cc.Database
	if path == "" {
		path = ":memory:"
	}
	if len(cc.Params) == 0 {
		return path
	}
	v := url.Values{}
	for k, p := range cc.Params {
		v.Set(k, p)
	}
	return "file:" + path + "?" + v.Encode()
}

// Driver is the SQLite driver.
type Driver struct {
	sql.Base
}

// New returns a SQLite driver over s.
func New(s sql.Session, logger *slog.Logger) *Driver {
	return &Driver{Base: sql.NewBase(s, logger)}
}

// Dialect implements db.Driver.
func (d *Driver) Dialect() string { return dialect.SQLite }

// QuoteIdentifierSymbol implements db.Driver.
func (d *Driver) QuoteIdentifierSymbol() string { return `"` }

func (d *Driver) quote(ident string) string {
	return db.QuoteIdentifierWith(`"`, ident)
}

// QuoteInternal implements db.Driver.
func (d *Driver) QuoteInternal(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05.999999999-07:00") + "'"
	default:
		return "'" + strings.ReplaceAll(db.ToString(v), "'", "''") + "'"
	}
}

// ListTables implements db.Driver.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	col, err := d.FetchCol(ctx, `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	tables := make([]string, len(col))
	for i, v := range col {
		tables[i] = db.ToString(v)
	}
	return tables, nil
}

type foreignKey struct {
	id      string
	table   string
	columns []string
	targets []string
}

func (d *Driver) foreignKeys(ctx context.Context, table string) ([]*foreignKey, error) {
	rs, err := d.FetchAll(ctx, "PRAGMA foreign_key_list("+d.quote(table)+")")
	if err != nil {
		return nil, err
	}
	var (
		fks   []*foreignKey
		index = make(map[string]*foreignKey)
	)
	for _, m := range rs.Maps() {
		id := db.ToString(m["id"])
		fk, ok := index[id]
		if !ok {
			fk = &foreignKey{id: id, table: db.ToString(m["table"])}
			index[id] = fk
			fks = append(fks, fk)
		}
		fk.columns = append(fk.columns, db.ToString(m["from"]))
		fk.targets = append(fk.targets, db.ToString(m["to"]))
	}
	return fks, nil
}

// ListForeignKeyReferences implements db.Driver. A foreign key declared
// without target columns references the primary key of its table.
func (d *Driver) ListForeignKeyReferences(ctx context.Context, table string) (map[string]dialect.Reference, error) {
	fks, err := d.foreignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]dialect.Reference)
	for _, fk := range fks {
		var pk []string
		for i, col := range fk.columns {
			target := fk.targets[i]
			if target == "" {
				if pk == nil {
					cols, err := d.DescribeTable(ctx, fk.table, "")
					if err != nil {
						return nil, err
					}
					pk = primaryKey(cols)
				}
				if i < len(pk) {
					target = pk[i]
				}
			}
			refs[col] = dialect.Reference{Table: fk.table, Column: target}
		}
	}
	return refs, nil
}

type index struct {
	name    string
	unique  bool
	origin  string
	columns []string
}

func (d *Driver) indexes(ctx context.Context, table string) ([]index, error) {
	rs, err := d.FetchAll(ctx, "PRAGMA index_list("+d.quote(table)+")")
	if err != nil {
		return nil, err
	}
	var out []index
	for _, m := range rs.Maps() {
		unique, _ := db.ToInt64(m["unique"])
		idx := index{name: db.ToString(m["name"]), unique: unique == 1, origin: db.ToString(m["origin"])}
		info, err := d.FetchAll(ctx, "PRAGMA index_info("+d.quote(idx.name)+")")
		if err != nil {
			return nil, err
		}
		maps := info.Maps()
		sort.SliceStable(maps, func(i, j int) bool {
			a, _ := db.ToInt64(maps[i]["seqno"])
			b, _ := db.ToInt64(maps[j]["seqno"])
			return a < b
		})
		for _, c := range maps {
			idx.columns = append(idx.columns, db.ToString(c["name"]))
		}
		out = append(out, idx)
	}
	return out, nil
}

// ListUniqueConstraints implements db.Driver. Unique indexes created for
// UNIQUE constraints and by CREATE UNIQUE INDEX are both reported; the
// primary key is not.
func (d *Driver) ListUniqueConstraints(ctx context.Context, table string) (map[string][]string, error) {
	idxs, err := d.indexes(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, idx := range idxs {
		if idx.unique && idx.origin != "pk" {
			out[idx.name] = idx.columns
		}
	}
	return out, nil
}

// ListMissingForeignKeyIndexes implements db.Driver.
func (d *Driver) ListMissingForeignKeyIndexes(ctx context.Context, table string) ([][]string, error) {
	fks, err := d.foreignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	idxs, err := d.indexes(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := make([][]string, len(fks))
	for i, fk := range fks {
		cols[i] = fk.columns
	}
	covering := make([][]string, len(idxs))
	for i, idx := range idxs {
		covering[i] = idx.columns
	}
	return db.UncoveredColumnLists(cols, covering), nil
}

// DescribeTable implements db.Driver using PRAGMA table_info. A single
// INTEGER primary key is an alias of the rowid and reported as identity.
func (d *Driver) DescribeTable(ctx context.Context, table, schema string) ([]dialect.Column, error) {
	pragma := "PRAGMA table_info(" + d.quote(table) + ")"
	if schema != "" {
		pragma = "PRAGMA " + d.quote(schema) + ".table_info(" + d.quote(table) + ")"
	}
	rs, err := d.FetchAll(ctx, pragma)
	if err != nil {
		return nil, err
	}
	cols := make([]dialect.Column, 0, rs.Len())
	for i, m := range rs.Maps() {
		t := db.ParseNativeType(strings.ToLower(db.ToString(m["type"])))
		notNull, _ := db.ToInt64(m["notnull"])
		pk, _ := db.ToInt64(m["pk"])
		c := dialect.Column{
			SchemaName:      schema,
			TableName:       table,
			Name:            db.ToString(m["name"]),
			Position:        i + 1,
			DataType:        t.DataType,
			Nullable:        notNull == 0 && pk == 0,
			Length:          t.Length,
			Precision:       t.Precision,
			Scale:           t.Scale,
			Unsigned:        t.Unsigned,
			Primary:         pk > 0,
			PrimaryPosition: int(pk),
		}
		if m["dflt_value"] != nil {
			def := db.ToString(m["dflt_value"])
			c.Default = &def
		}
		cols = append(cols, c)
	}
	if pk := primaryKey(cols); len(pk) == 1 {
		for i := range cols {
			if cols[i].Name == pk[0] && cols[i].DataType == "integer" {
				cols[i].Identity = true
			}
		}
	}
	return cols, nil
}

func primaryKey(cols []dialect.Column) []string {
	byName := make(map[string]dialect.Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}
	return dialect.PrimaryKey(byName)
}

// MapNativeTypeToGenericType implements db.Driver following SQLite's type
// affinity rules, with the common declared names recognized first.
func (d *Driver) MapNativeTypeToGenericType(native string, _ int) dialect.GenericType {
	native = strings.ToLower(native)
	switch {
	case native == "boolean" || native == "bool" || native == "tinyint":
		return dialect.TypeBoolean
	case native == "datetime" || strings.HasPrefix(native, "timestamp"):
		return dialect.TypeTimestamp
	case native == "date":
		return dialect.TypeDate
	case native == "time":
		return dialect.TypeTime
	case strings.Contains(native, "int"):
		return dialect.TypeInteger
	case native == "text" || strings.Contains(native, "clob"):
		return dialect.TypeClob
	case strings.Contains(native, "char"):
		return dialect.TypeText
	case native == "" || strings.Contains(native, "blob"):
		return dialect.TypeBlob
	case strings.Contains(native, "real") || strings.Contains(native, "floa") ||
		strings.Contains(native, "doub") || native == "numeric" || native == "decimal":
		return dialect.TypeFloat
	default:
		return dialect.TypeText
	}
}

// PrepareSelectForTotalRowCalculation implements db.Driver with a window
// count over the un-limited result.
func (d *Driver) PrepareSelectForTotalRowCalculation(sel *db.Select) {
	sel.Columns("COUNT(*) OVER () AS " + db.TotalRowCountColumn)
}

// FetchTotalRowCount implements db.Driver. An empty result counts 0.
func (d *Driver) FetchTotalRowCount(_ context.Context, rs *sql.ResultSet) (int64, error) {
	i := rs.Index(db.TotalRowCountColumn)
	if i < 0 {
		return 0, fmt.Errorf("sqlite: result has no %s column", db.TotalRowCountColumn)
	}
	if rs.Len() == 0 {
		return 0, nil
	}
	return db.ToInt64(rs.Rows[0][i])
}

// CaseInsensitiveLikeOperator implements db.Driver. SQLite's LIKE ignores
// case for ASCII characters.
func (d *Driver) CaseInsensitiveLikeOperator() string { return "LIKE" }

// TruncateTimestampToDate implements db.Driver.
func (d *Driver) TruncateTimestampToDate(expr string) string {
	return "date(" + expr + ")"
}

// GenerateCreateIndexStatement implements db.Driver.
func (d *Driver) GenerateCreateIndexStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quote(c)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		d.quote(db.IndexName(table, columns)), d.quote(table), strings.Join(quoted, ", "))
}

// GenerateAnalyzeTableStatement implements db.Driver.
func (d *Driver) GenerateAnalyzeTableStatement(table string) string {
	return "ANALYZE " + d.quote(table)
}

var _ db.Driver = (*Driver)(nil)
