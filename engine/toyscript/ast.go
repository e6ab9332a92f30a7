// Copyright 2025 The Scriptdap Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package toyscript is a minimal tree-walking interpreter for a small
// scripting language (assignment, arithmetic, if/for, function calls,
// debugger statement, print). It implements the engine.Engine and
// engine.Inspector collaborator interfaces so that package debug's
// end-to-end tests can exercise the full suspend/resume protocol without a
// real embedded engine, the way OPA's topdown package drives OPA's own
// debug package tests.
package toyscript

import "github.com/scriptdap/scriptdap/engine"

// Node is any AST node. Every statement node carries the source position it
// starts at, so the interpreter can report it at callback time.
type Node interface {
	Pos() engine.Position
}

// Program is the root of a parsed script.
type Program struct {
	Statements []Stmt
}

func (p *Program) Pos() engine.Position { return engine.Position{Line: 1, Column: 0} }

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

type base struct {
	Line, Column int
}

func (b base) Pos() engine.Position { return engine.Position{Line: b.Line, Column: b.Column} }

// AssignStmt assigns the result of Value to Name, declaring it if new.
type AssignStmt struct {
	base
	Name  string
	Value Expr
}

func (*AssignStmt) stmtNode() {}

// ExprStmt evaluates Expr for its side effects (e.g. a bare call).
type ExprStmt struct {
	base
	Expr Expr
}

func (*ExprStmt) stmtNode() {}

// PrintStmt evaluates Args and writes them to the interpreter's Stdout.
type PrintStmt struct {
	base
	Args []Expr
}

func (*PrintStmt) stmtNode() {}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	base
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}

// ForStmt is a while-style loop: `for cond { ... }`.
type ForStmt struct {
	base
	Cond Expr
	Body []Stmt
}

func (*ForStmt) stmtNode() {}

// FuncStmt declares a named function.
type FuncStmt struct {
	base
	Name   string
	Params []string
	Body   []Stmt
}

func (*FuncStmt) stmtNode() {}

// ReturnStmt exits the enclosing function call with Value (nil for none).
type ReturnStmt struct {
	base
	Value Expr
}

func (*ReturnStmt) stmtNode() {}

// DebuggerStmt is a hard "debugger" statement: it always invokes the break
// callback, regardless of the breakpoint table.
type DebuggerStmt struct {
	base
}

func (*DebuggerStmt) stmtNode() {}

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

type NumberLit struct {
	base
	Value float64
}

func (*NumberLit) exprNode() {}

type StringLit struct {
	base
	Value string
}

func (*StringLit) exprNode() {}

type BoolLit struct {
	base
	Value bool
}

func (*BoolLit) exprNode() {}

type NilLit struct{ base }

func (*NilLit) exprNode() {}

type Ident struct {
	base
	Name string
}

func (*Ident) exprNode() {}

// BinaryExpr is a left-associative binary operation.
type BinaryExpr struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a prefix operation ("-" or "!").
type UnaryExpr struct {
	base
	Op      string
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// CallExpr invokes a named function with Args.
type CallExpr struct {
	base
	Callee string
	Args   []Expr
}

func (*CallExpr) exprNode() {}
