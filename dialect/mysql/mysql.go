// Package mysql implements the MySQL driver. Importing it registers the
// driver under dialect.MySQL.
package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/syssam/tablegate/db"
	"github.com/syssam/tablegate/dialect"
	"github.com/syssam/tablegate/dialect/sql"
)

func init() {
	db.Register(dialect.MySQL, db.Registration{
		SQLDriver: "mysql",
		DSN:       DSN,
		New: func(s sql.Session, logger *slog.Logger) db.Driver {
			return New(s, logger)
		},
	})
}

// DSN formats cc for go-sql-driver/mysql.
func DSN(cc db.ConnConfig) string {
	cfg := gomysql.NewConfig()
	cfg.User = cc.User
	cfg.Passwd = cc.Password
	cfg.DBName = cc.Database
	if cc.Host != "" {
		port := cc.Port
		if port == 0 {
			port = 3306
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(cc.Host, strconv.Itoa(port))
	}
	if len(cc.Params) > 0 {
		cfg.Params = make(map[string]string, len(cc.Params))
		for k, v := range cc.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

// Driver is the MySQL driver.
type Driver struct {
	sql.Base
}

// New returns a MySQL driver over s.
func New(s sql.Session, logger *slog.Logger) *Driver {
	return &Driver{Base: sql.NewBase(s, logger)}
}

// Dialect implements db.Driver.
func (d *Driver) Dialect() string { return dialect.MySQL }

// QuoteIdentifierSymbol implements db.Driver.
func (d *Driver) QuoteIdentifierSymbol() string { return "`" }

func (d *Driver) quote(ident string) string {
	return db.QuoteIdentifierWith("`", ident)
}

var escaper = strings.NewReplacer(
	"\\", `\\`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"'", `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

// QuoteInternal implements db.Driver. Strings are escaped the way
// mysql_real_escape_string does.
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
		return "'" + v.Format("2006-01-02 15:04:05.999999") + "'"
	default:
		return "'" + escaper.Replace(db.ToString(v)) + "'"
	}
}

// ListTables implements db.Driver.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	col, err := d.FetchCol(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	tables := make([]string, len(col))
	for i, v := range col {
		tables[i] = db.ToString(v)
	}
	return tables, nil
}

const foreignKeysQuery = `SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM information_schema.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`

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
	rs, err := d.FetchAll(ctx, `SELECT tc.CONSTRAINT_NAME, k.COLUMN_NAME
FROM information_schema.TABLE_CONSTRAINTS tc
JOIN information_schema.KEY_COLUMN_USAGE k
  ON k.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA AND k.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND k.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_SCHEMA = DATABASE() AND tc.TABLE_NAME = ? AND tc.CONSTRAINT_TYPE = 'UNIQUE'
ORDER BY tc.CONSTRAINT_NAME, k.ORDINAL_POSITION`, table)
	if err != nil {
		return nil, err
	}
	return db.GroupColumnMap(rs, 0, 1), nil
}

// ListMissingForeignKeyIndexes implements db.Driver.
func (d *Driver) ListMissingForeignKeyIndexes(ctx context.Context, table string) ([][]string, error) {
	rs, err := d.FetchAll(ctx, foreignKeysQuery, table)
	if err != nil {
		return nil, err
	}
	fks := db.GroupColumnLists(rs, 0, 1)
	rs, err = d.FetchAll(ctx, "SHOW INDEX FROM "+d.quote(table))
	if err != nil {
		return nil, err
	}
	indexes := db.GroupColumnLists(rs, rs.Index("Key_name"), rs.Index("Column_name"))
	return db.UncoveredColumnLists(fks, indexes), nil
}

// DescribeTable implements db.Driver using DESCRIBE.
func (d *Driver) DescribeTable(ctx context.Context, table, schema string) ([]dialect.Column, error) {
	name := d.quote(table)
	if schema != "" {
		name = d.quote(schema) + "." + name
	}
	rs, err := d.FetchAll(ctx, "DESCRIBE "+name)
	if err != nil {
		return nil, err
	}
	rows := make([]db.DescribeRow, 0, rs.Len())
	for _, m := range rs.Maps() {
		row := db.DescribeRow{
			Field: db.ToString(m["Field"]),
			Type:  db.ToString(m["Type"]),
			Null:  db.ToString(m["Null"]),
			Key:   db.ToString(m["Key"]),
			Extra: db.ToString(m["Extra"]),
		}
		if m["Default"] != nil {
			def := db.ToString(m["Default"])
			row.Default = &def
		}
		rows = append(rows, row)
	}
	cols := db.DescribeColumns(table, rows)
	for i := range cols {
		cols[i].SchemaName = schema
	}
	return cols, nil
}

// MapNativeTypeToGenericType implements db.Driver. tinyint columns are
// booleans unless a display width above 1 is given.
func (d *Driver) MapNativeTypeToGenericType(native string, length int) dialect.GenericType {
	switch strings.ToLower(native) {
	case "bool", "boolean", "bit":
		return dialect.TypeBoolean
	case "tinyint":
		if length > 1 {
			return dialect.TypeInteger
		}
		return dialect.TypeBoolean
	case "smallint", "mediumint", "int", "integer", "bigint", "year":
		return dialect.TypeInteger
	case "decimal", "dec", "numeric", "fixed", "float", "double", "double precision", "real":
		return dialect.TypeFloat
	case "char", "varchar", "enum", "set":
		return dialect.TypeText
	case "tinytext", "text", "mediumtext", "longtext", "json":
		return dialect.TypeClob
	case "datetime", "timestamp":
		return dialect.TypeTimestamp
	case "date":
		return dialect.TypeDate
	case "time":
		return dialect.TypeTime
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		return dialect.TypeBlob
	default:
		return dialect.TypeText
	}
}

// PrepareSelectForTotalRowCalculation implements db.Driver.
func (d *Driver) PrepareSelectForTotalRowCalculation(sel *db.Select) {
	sel.Option("SQL_CALC_FOUND_ROWS")
}

// FetchTotalRowCount implements db.Driver. It must run right after the
// select, on the same connection.
func (d *Driver) FetchTotalRowCount(ctx context.Context, _ *sql.ResultSet) (int64, error) {
	v, err := d.FetchOne(ctx, "SELECT FOUND_ROWS()")
	if err != nil {
		return 0, err
	}
	return db.ToInt64(v)
}

// CaseInsensitiveLikeOperator implements db.Driver. MySQL's LIKE follows
// the column collation, which is case-insensitive by default.
func (d *Driver) CaseInsensitiveLikeOperator() string { return "LIKE" }

// TruncateTimestampToDate implements db.Driver.
func (d *Driver) TruncateTimestampToDate(expr string) string {
	return "DATE(" + expr + ")"
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
	return "ANALYZE TABLE " + d.quote(table)
}

var _ db.Driver = (*Driver)(nil)
