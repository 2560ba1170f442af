package starlark

import (
	"maps"

	"github.com/leapstack-labs/leapbasic/pkg/symtab"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// foldNames respells the identifiers of a REPL chunk so that names differing only in case
// refer to a single session global. The spelling already bound in the session wins, then
// the first spelling the chunk binds at top level. Built-in and universe names keep their
// case, and so do attribute names, keyword argument names and the locals of functions.
func (e *Evaluator) foldNames(f *syntax.File) {
	spelling := make(map[string]string, len(e.session))
	for name := range e.session {
		if !e.keepsCase(name) {
			spelling[symtab.Fold(name)] = name
		}
	}
	for _, stmt := range f.Stmts {
		bindings(stmt, func(id *syntax.Ident) {
			key := symtab.Fold(id.Name)
			if _, ok := spelling[key]; !ok && !e.keepsCase(id.Name) {
				spelling[key] = id.Name
			}
		})
	}
	walk := e.respeller(spelling)
	for _, stmt := range f.Stmts {
		syntax.Walk(stmt, walk)
	}
}

func (e *Evaluator) respeller(spelling map[string]string) func(syntax.Node) bool {
	var respell func(syntax.Node) bool
	respell = func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.Ident:
			if e.keepsCase(n.Name) {
				return false
			}
			if s, ok := spelling[symtab.Fold(n.Name)]; ok {
				n.Name = s
			}
		case *syntax.DotExpr:
			syntax.Walk(n.X, respell)
			return false
		case *syntax.CallExpr:
			syntax.Walk(n.Fn, respell)
			for _, arg := range n.Args {
				if kw, ok := arg.(*syntax.BinaryExpr); ok && kw.Op == syntax.EQ {
					syntax.Walk(kw.Y, respell)
					continue
				}
				syntax.Walk(arg, respell)
			}
			return false
		case *syntax.DefStmt:
			syntax.Walk(n.Name, respell)
			inner := e.functionScope(spelling, n.Params, func(fn func(*syntax.Ident)) {
				for _, stmt := range n.Body {
					bindings(stmt, fn)
				}
			}, respell)
			for _, stmt := range n.Body {
				syntax.Walk(stmt, inner)
			}
			return false
		case *syntax.LambdaExpr:
			inner := e.functionScope(spelling, n.Params, func(func(*syntax.Ident)) {}, respell)
			syntax.Walk(n.Body, inner)
			return false
		case *syntax.LoadStmt:
			return false
		}
		return true
	}
	return respell
}

// functionScope walks parameter defaults with outer and returns the walker for the
// function body, in which the names the function binds itself are not respelled.
func (e *Evaluator) functionScope(spelling map[string]string, params []syntax.Expr, locals func(func(*syntax.Ident)), outer func(syntax.Node) bool) func(syntax.Node) bool {
	inner := maps.Clone(spelling)
	local := func(id *syntax.Ident) { delete(inner, symtab.Fold(id.Name)) }
	for _, p := range params {
		switch p := p.(type) {
		case *syntax.Ident:
			local(p)
		case *syntax.BinaryExpr:
			if id, ok := p.X.(*syntax.Ident); ok {
				local(id)
			}
			syntax.Walk(p.Y, outer)
		case *syntax.UnaryExpr:
			if id, ok := p.X.(*syntax.Ident); ok {
				local(id)
			}
		}
	}
	locals(local)
	return e.respeller(inner)
}

func (e *Evaluator) keepsCase(name string) bool {
	if _, ok := e.builtins[name]; ok {
		return true
	}
	_, ok := starlark.Universe[name]
	return ok
}

// bindings calls fn for every identifier stmt binds in its own scope, not counting
// the bodies of nested functions.
func bindings(stmt syntax.Stmt, fn func(*syntax.Ident)) {
	switch s := stmt.(type) {
	case *syntax.AssignStmt:
		bindingIdents(s.LHS, fn)
	case *syntax.DefStmt:
		fn(s.Name)
	case *syntax.ForStmt:
		bindingIdents(s.Vars, fn)
		for _, b := range s.Body {
			bindings(b, fn)
		}
	case *syntax.WhileStmt:
		for _, b := range s.Body {
			bindings(b, fn)
		}
	case *syntax.IfStmt:
		for _, b := range s.True {
			bindings(b, fn)
		}
		for _, b := range s.False {
			bindings(b, fn)
		}
	}
}

func bindingIdents(x syntax.Expr, fn func(*syntax.Ident)) {
	switch x := x.(type) {
	case *syntax.Ident:
		fn(x)
	case *syntax.ParenExpr:
		bindingIdents(x.X, fn)
	case *syntax.TupleExpr:
		for _, el := range x.List {
			bindingIdents(el, fn)
		}
	case *syntax.ListExpr:
		for _, el := range x.List {
			bindingIdents(el, fn)
		}
	}
}
