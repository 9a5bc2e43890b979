package db

// Expr is raw SQL. Quoting functions pass it through verbatim, and Insert or
// Update inline it instead of binding it as a value.
type Expr string

// String returns the SQL text.
func (e Expr) String() string { return string(e) }

// Where is one term of a WHERE clause built by Update and Delete. When Value
// is nil, Cond is used as is. Otherwise Value is quoted into every ?
// placeholder of Cond.
type Where struct {
	Cond  string
	Value any
}

// Cond returns a Where term with no value.
func Cond(cond string) Where { return Where{Cond: cond} }

// Term returns a Where term that quotes value into cond.
//
//	db.Term("id = ?", 5)
func Term(cond string, value any) Where { return Where{Cond: cond, Value: value} }
