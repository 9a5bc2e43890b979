// Package postgres implements the PostgreSQL driver on top of lib/pq.
// Importing it registers the driver under dialect.Postgres.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
)

func init() {
	db.Register(dialect.Postgres, db.Registration{
		SQLDriver: "postgres",
		DSN:       DSN,
		New: func(s sql.Session, logger *slog.Logger) db.Driver {
			return New(s, logger)
		},
	})
}

// DSN formats cc as a lib/pq key/value connection string. Keys are written
// in a fixed order; Params follow sorted by key.
func DSN(cc db.ConnConfig) string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+dsnValue(v))
		}
	}
	add("host", cc.Host)
	if cc.Port != 0 {
		add("port", strconv.Itoa(cc.Port))
	}
	add("user", cc.User)
	add("password", cc.Password)
	add("dbname", cc.Database)
	keys := make([]string, 0, len(cc.Params))
	for k := range cc.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, cc.Params[k])
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// Driver is the PostgreSQL driver.
type Driver struct {
	sql.Base
}

// New returns a PostgreSQL driver over s.
func New(s sql.Session, logger *slog.Logger) *Driver {
	return &Driver{Base: sql.NewBase(s, logger)}
}

// Dialect implements db.Driver.
func (d *Driver) Dialect() string { return dialect.Postgres }

// QuoteIdentifierSymbol implements db.Driver.
func (d *Driver) QuoteIdentifierSymbol() string { return `"` }

func (d *Driver) quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

// QuoteInternal implements db.Driver.
func (d *Driver) QuoteInternal(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return pq.QuoteLiteral(v.Format("2006-01-02 15:04:05.999999-07:00"))
	default:
		return pq.QuoteLiteral(db.ToString(v))
	}
}

// LastInsertID implements db.Driver with LASTVAL(), the value most recently
// obtained from a sequence in this session.
func (d *Driver) LastInsertID(ctx context.Context) (int64, error) {
	v, err := d.FetchOne(ctx, "SELECT LASTVAL()")
	if err != nil {
		return 0, err
	}
	return db.ToInt64(v)
}

// ListTables implements db.Driver.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	col, err := d.FetchCol(ctx, `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	tables := make([]string, len(col))
	for i, v := range col {
		tables[i] = db.ToString(v)
	}
	return tables, nil
}

const foreignKeysQuery = `SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = ? AND tc.table_schema = current_schema()
ORDER BY tc.constraint_name, kcu.ordinal_position`

// ListForeignKeyReferences implements db.Driver.
func (d *Driver) ListForeignKeyReferences(ctx context.Context, table string) (map[string]dialect.Reference, error) {
	rs, err := d.FetchAll(ctx, foreignKeysQuery, table)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]dialect.Reference, rs.Len())
	for _, row := range rs.Rows {
		refs[db.ToString(row[1])] = dialect.Reference{
			Table:  db.ToString(row[2]),
			Column: db.ToString(row[3]),
		}
	}
	return refs, nil
}

// ListUniqueConstraints implements db.Driver.
func (d *Driver) ListUniqueConstraints(ctx context.Context, table string) (map[string][]string, error) {
	rs, err := d.FetchAll(ctx, `SELECT tc.constraint_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'UNIQUE' AND tc.table_name = ? AND tc.table_schema = current_schema()
ORDER BY tc.constraint_name, kcu.ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	return db.GroupColumnMap(rs, 0, 1), nil
}

const indexesQuery = `SELECT i.relname, a.attname
FROM pg_class t
JOIN pg_index ix ON ix.indrelid = t.oid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
WHERE t.relname = ? AND t.relkind = 'r' AND t.relnamespace = to_regnamespace(current_schema())
ORDER BY i.relname, array_position(ix.indkey::int2[], a.attnum)`

// ListMissingForeignKeyIndexes implements db.Driver.
func (d *Driver) ListMissingForeignKeyIndexes(ctx context.Context, table string) ([][]string, error) {
	rs, err := d.FetchAll(ctx, foreignKeysQuery, table)
	if err != nil {
		return nil, err
	}
	fks := db.GroupColumnLists(rs, 0, 1)
	rs, err = d.FetchAll(ctx, indexesQuery, table)
	if err != nil {
		return nil, err
	}
	return db.UncoveredColumnLists(fks, db.GroupColumnLists(rs, 0, 1)), nil
}

const columnsQuery = `SELECT c.table_schema, c.column_name, c.ordinal_position, c.data_type, c.column_default,
  c.is_nullable, c.character_maximum_length, c.numeric_precision, c.numeric_scale, c.is_identity
FROM information_schema.columns c
WHERE c.table_name = ? AND c.table_schema = COALESCE(NULLIF(?, ''), current_schema())
ORDER BY c.ordinal_position`

const primaryKeyQuery = `SELECT kcu.column_name, kcu.ordinal_position
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = ?
  AND tc.table_schema = COALESCE(NULLIF(?, ''), current_schema())`

// DescribeTable implements db.Driver from information_schema. Primary key
// positions come from the key definition.
func (d *Driver) DescribeTable(ctx context.Context, table, schema string) ([]dialect.Column, error) {
	pkRows, err := d.FetchAll(ctx, primaryKeyQuery, table, schema)
	if err != nil {
		return nil, err
	}
	pk := make(map[string]int, pkRows.Len())
	for _, row := range pkRows.Rows {
		pos, err := db.ToInt64(row[1])
		if err != nil {
			return nil, err
		}
		pk[db.ToString(row[0])] = int(pos)
	}
	rs, err := d.FetchAll(ctx, columnsQuery, table, schema)
	if err != nil {
		return nil, err
	}
	cols := make([]dialect.Column, 0, rs.Len())
	for _, m := range rs.Maps() {
		c := dialect.Column{
			SchemaName: db.ToString(m["table_schema"]),
			TableName:  table,
			Name:       db.ToString(m["column_name"]),
			DataType:   db.ToString(m["data_type"]),
			Nullable:   db.ToString(m["is_nullable"]) == "YES",
		}
		pos, err := db.ToInt64(m["ordinal_position"])
		if err != nil {
			return nil, err
		}
		c.Position = int(pos)
		if m["column_default"] != nil {
			def := db.ToString(m["column_default"])
			c.Default = &def
		}
		if n, err := db.ToInt64(m["character_maximum_length"]); err == nil {
			c.Length = int(n)
		}
		if c.DataType == "numeric" {
			p, _ := db.ToInt64(m["numeric_precision"])
			s, _ := db.ToInt64(m["numeric_scale"])
			c.Precision, c.Scale = int(p), int(s)
		}
		if p, ok := pk[c.Name]; ok {
			c.Primary = true
			c.PrimaryPosition = p
			c.Identity = db.ToString(m["is_identity"]) == "YES" ||
				(c.Default != nil && strings.HasPrefix(*c.Default, "nextval("))
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// MapNativeTypeToGenericType implements db.Driver.
func (d *Driver) MapNativeTypeToGenericType(native string, _ int) dialect.GenericType {
	native = strings.ToLower(native)
	switch {
	case native == "boolean" || native == "bool":
		return dialect.TypeBoolean
	case native == "smallint" || native == "integer" || native == "bigint" ||
		native == "int" || native == "int2" || native == "int4" || native == "int8" ||
		strings.HasSuffix(native, "serial"):
		return dialect.TypeInteger
	case native == "numeric" || native == "decimal" || native == "real" ||
		native == "double precision" || native == "float4" || native == "float8":
		return dialect.TypeFloat
	case native == "money":
		return dialect.TypeMoney
	case native == "text" || native == "json" || native == "jsonb" || native == "xml":
		return dialect.TypeClob
	case strings.HasPrefix(native, "timestamp"):
		return dialect.TypeTimestamp
	case native == "date":
		return dialect.TypeDate
	case strings.HasPrefix(native, "time"):
		return dialect.TypeTime
	case native == "bytea":
		return dialect.TypeBlob
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
		return 0, fmt.Errorf("postgres: result has no %s column", db.TotalRowCountColumn)
	}
	if rs.Len() == 0 {
		return 0, nil
	}
	return db.ToInt64(rs.Rows[0][i])
}

// CaseInsensitiveLikeOperator implements db.Driver.
func (d *Driver) CaseInsensitiveLikeOperator() string { return "ILIKE" }

// TruncateTimestampToDate implements db.Driver.
func (d *Driver) TruncateTimestampToDate(expr string) string {
	return expr + "::date"
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
