// Package db runs SQL against a relational database through a vendor
// neutral Adapter.
//
// Vendor specific behavior (identifier quoting, literal escaping, schema
// introspection, total row counting) lives behind the Driver interface,
// implemented in dialect/mysql, dialect/postgres and dialect/sqlite. Driver
// packages register themselves; import one for its side effect and open it
// by dialect name:
//
//	import _ "github.com/syssam/tablegate/dialect/sqlite"
//
//	drv, err := db.Open(ctx, dialect.SQLite, db.ConnConfig{Database: "app.db"})
//	if err != nil {
//		return err
//	}
//	a := db.New(drv)
//	defer a.Close()
//
//	rows, total, err := a.FetchAllWithTotal(ctx,
//		a.Select().From("users").Order("name").LimitPage(2, 50))
//
// Statements always use ? placeholders; the connection rebinds them for
// databases that use numbered placeholders.
package db
