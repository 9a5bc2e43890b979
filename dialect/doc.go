// Package dialect holds the vendor-neutral vocabulary shared by every layer of
// tablegate: dialect names, the generic column type enumeration and the
// column/reference metadata records produced by schema introspection.
//
// # Supported Dialects
//
//   - MySQL: MySQL/MariaDB database
//   - Postgres: PostgreSQL database
//   - SQLite: SQLite database
//
// Each dialect is identified by a constant string:
//
//	dialect.MySQL    = "mysql"
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite"
//
// # Column Metadata
//
// Column is the shape of one entry of a table description. The same record is
// returned by Driver.DescribeTable and stored in metadata artifacts:
//
//	dialect.Column{
//	    Name:            "id",
//	    DataType:        "int",
//	    Primary:         true,
//	    PrimaryPosition: 1,
//	    Identity:        true,
//	}
//
// Primary key positions are contiguous from 1; ValidatePrimaryKey enforces it
// and PrimaryKey returns the key columns in position order.
//
// # Sub-packages
//
//   - dialect/sql: database/sql connection wrapper with placeholder rebinding
//   - dialect/sql/sqlerr: constraint violation classification
//   - dialect/mysql, dialect/postgres, dialect/sqlite: db.Driver implementations
package dialect
