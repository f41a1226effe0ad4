// Package sqlexpr provides a type-safe DSL for building PostgreSQL queries
// and expressions.
//
// # Overview
//
// Rather than constructing SQL strings through concatenation or templating,
// this package provides typed building blocks that compose together to form
// complete queries and expressions. The rewrite engine emits PostgreSQL text
// by assembling these types instead of interpolating raw strings, which keeps
// the shape of the generated SQL visible at the call site and avoids ad hoc
// string escaping bugs.
//
// # Core Interfaces
//
// All DSL types implement one of two interfaces:
//
//   - Expr: represents a SQL expression (columns, literals, operators, calls)
//   - SQLer: represents a complete statement (a WITH query built from CTEs)
//
// Both define a SQL() method that renders PostgreSQL syntax.
//
// # Expression Types
//
//	Col{Table: "t", Column: "id"}      // t.id
//	Lit("document")                    // 'document'
//	Int(42)                            // 42
//	Bool(true)                         // TRUE
//	Null{}                             // NULL
//	Raw("CURRENT_TIMESTAMP")           // escape hatch for arbitrary SQL
//	Concat{Parts: []Expr{a, b}}        // a || b
//	Substring{Source: s, From: Int(1)} // substring(s from 1)
//
// Operators:
//
//	Eq{Left: col, Right: lit}          // col = lit
//	In{Expr: col, Values: []string{"a", "b"}} // col IN ('a', 'b')
//	And(e1, e2, e3)                    // (e1 AND e2 AND e3)
//	Or(e1, e2)                         // (e1 OR e2)
//	Not(e)                             // NOT (e)
//	CaseExpr{Whens: [...], Else: e}    // CASE WHEN ... END
//
// # Statement Types
//
//	WithCTE{
//	    Recursive: true,
//	    CTEs: []CTEDef{{Name: "walk", Query: cteQuery}},
//	    Query: finalSelect,
//	}
package sqlexpr
