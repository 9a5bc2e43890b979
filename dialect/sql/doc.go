// Package sql is the connection layer shared by the drivers.
//
// A Session is one logical connection: statements with ? placeholders,
// explicit transaction control and the dialect used to rebind placeholders
// for PostgreSQL. Conn implements Session over a single pinned database/sql
// connection, so connection-scoped state such as the last insert id
// survives between statements.
//
//	conn, err := sql.Open(ctx, "sqlite", dialect.SQLite, ":memory:")
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	base := sql.NewBase(conn, logger)
//	rs, err := base.FetchAll(ctx, "SELECT id, name FROM users WHERE id = ?", 1)
//
// # Wrappers
//
// StatsConn and DebugConn wrap any Session. StatsConn counts statements and
// reports slow ones; DebugConn logs every statement with its arguments.
//
//	var s sql.Session = sql.NewStatsConn(conn, sql.WithSlowThreshold(200*time.Millisecond))
//	s = sql.NewDebugConn(s, logger)
//
// # Errors
//
// Driver errors are returned wrapped. Package sqlerr classifies them into
// constraint violations independently of the driver in use.
package sql
