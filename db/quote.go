package db

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

type numericType int

const (
	int32Type numericType = iota + 1
	int64Type
	floatType
)

// numericTypes maps the SQL type names that Quote coerces. Lookups are
// case-insensitive.
var numericTypes = map[string]numericType{
	"INT":              int32Type,
	"INTEGER":          int32Type,
	"MEDIUMINT":        int32Type,
	"SMALLINT":         int32Type,
	"TINYINT":          int32Type,
	"BIGINT":           int64Type,
	"SERIAL":           int64Type,
	"DEC":              floatType,
	"DECIMAL":          floatType,
	"DOUBLE":           floatType,
	"DOUBLE PRECISION": floatType,
	"FIXED":            floatType,
	"FLOAT":            floatType,
}

var (
	// bigintLiteral matches an ODBC-style hex literal or a decimal (possibly
	// octal-looking or zero-filled) literal with an optional exponent.
	// Hex literals in the x'..' form are string literals and do not match.
	bigintLiteral = regexp.MustCompile(`^([+-]?(?:0[Xx][0-9a-fA-F]+|\d+(?:[eE][+-]?\d+)?))`)
	leadingInt    = regexp.MustCompile(`^\s*([+-]?\d+)`)
	leadingFloat  = regexp.MustCompile(`^\s*([+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)`)
)

// Quote returns value as SQL text safe to embed in a statement.
//
// A *Select is assembled, interpolated and parenthesized. An Expr is passed
// through. Slices are quoted element by element and joined with ", ". When
// typ names a numeric SQL type (INT, BIGINT, DECIMAL, ...), the value is
// coerced to a numeric literal instead of being quoted; values that do not
// parse become 0. Everything else is quoted by the driver.
func (a *Adapter) Quote(value any, typ string) string {
	switch v := value.(type) {
	case *Select:
		return "(" + v.String() + ")"
	case Expr:
		return string(v)
	case []byte:
		return a.driver.QuoteInternal(string(v))
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = a.Quote(rv.Index(i).Interface(), typ)
		}
		return strings.Join(parts, ", ")
	}
	if typ != "" {
		if nt, ok := numericTypes[strings.ToUpper(typ)]; ok {
			return coerceNumeric(value, nt)
		}
	}
	return a.driver.QuoteInternal(value)
}

func coerceNumeric(value any, nt numericType) string {
	switch nt {
	case int32Type:
		return strconv.FormatInt(intval(value), 10)
	case int64Type:
		if m := bigintLiteral.FindStringSubmatch(stringify(value)); m != nil {
			return m[1]
		}
		return "0"
	default:
		f := floatval(value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "0"
		}
		return strconv.FormatFloat(f, 'f', 6, 64)
	}
}

// intval parses the leading integer of value.
func intval(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	}
	m := leadingInt.FindStringSubmatch(stringify(value))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// floatval parses the leading decimal number of value.
func floatval(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float32:
		return float64(v)
	case float64:
		return v
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return float64(intval(v))
	}
	m := leadingFloat.FindStringSubmatch(stringify(value))
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return f
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return ""
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// QuoteInto quotes value and substitutes it for ? placeholders in text. A
// negative count replaces every placeholder; otherwise at most count
// placeholders are replaced, left to right.
//
//	a.QuoteInto("WHERE date < ?", "2005-01-02", "", -1)
//	// WHERE date < '2005-01-02'
func (a *Adapter) QuoteInto(text string, value any, typ string, count int) string {
	if count == 0 || !strings.Contains(text, "?") {
		return text
	}
	quoted := a.Quote(value, typ)
	if count < 0 {
		return strings.ReplaceAll(text, "?", quoted)
	}
	var b strings.Builder
	for count > 0 {
		i := strings.IndexByte(text, '?')
		if i < 0 {
			break
		}
		b.WriteString(text[:i])
		b.WriteString(quoted)
		text = text[i+1:]
		count--
	}
	b.WriteString(text)
	return b.String()
}

// Interpolate quotes args into the ? placeholders of query in order.
// Placeholders inside quoted literals or identifiers of query are kept, and
// the quoted values are never scanned for placeholders.
func (a *Adapter) Interpolate(query string, args ...any) string {
	if len(args) == 0 || !strings.Contains(query, "?") {
		return query
	}
	var (
		b     strings.Builder
		n     int
		quote rune
	)
	b.Grow(len(query) + 16*len(args))
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?' && n < len(args):
			b.WriteString(a.Quote(args[n], ""))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QuoteIdentifier quotes a possibly dot-qualified identifier. It always
// quotes, regardless of the auto-quote setting.
func (a *Adapter) QuoteIdentifier(ident string) string {
	return a.quoteIdentifierAs(ident, "", false)
}

// QuoteTableAs quotes a table identifier and an optional alias. With auto
// set, quoting follows the adapter's auto-quote setting.
func (a *Adapter) QuoteTableAs(ident, alias string, auto bool) string {
	return a.quoteIdentifierAs(ident, alias, auto)
}

// QuoteColumnAs quotes a column identifier and an optional alias. With auto
// set, quoting follows the adapter's auto-quote setting.
func (a *Adapter) QuoteColumnAs(ident, alias string, auto bool) string {
	return a.quoteIdentifierAs(ident, alias, auto)
}

func (a *Adapter) quoteIdentifierAs(ident, alias string, auto bool) string {
	segments := strings.Split(ident, ".")
	if alias != "" && segments[len(segments)-1] == alias {
		alias = ""
	}
	for i, s := range segments {
		segments[i] = a.quoteIdentifierInternal(s, auto)
	}
	quoted := strings.Join(segments, ".")
	if alias != "" {
		quoted += " AS " + a.quoteIdentifierInternal(alias, auto)
	}
	return quoted
}

func (a *Adapter) quoteIdentifierInternal(value string, auto bool) string {
	if !auto || a.autoQuote {
		q := a.driver.QuoteIdentifierSymbol()
		return q + strings.ReplaceAll(value, q, q+q) + q
	}
	return value
}

// QuoteIdentifierSymbol returns the driver's identifier delimiter.
func (a *Adapter) QuoteIdentifierSymbol() string {
	return a.driver.QuoteIdentifierSymbol()
}
