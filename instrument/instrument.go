// Package instrument weaves coverage counters into Go source.
//
// Every block entry gets a call to cover.Hit with a dense edge id.
// Ids are assigned sequentially across all the files processed by the same Instrumenter,
// so the whole set shares one counter table.
package instrument

import (
	"bytes"
	"encoding/json"
	"go/parser"
	"go/token"
	"io"
	"strconv"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Instrumenter struct {
		// Next is the id given to the next edge.
		Next int

		// Import is the counters package path and Alias is the name it's imported with.
		Import string
		Alias  string

		// Package is the name of the last woven package.
		Package string

		Edges []Edge
	}

	Edge struct {
		ID   int    `json:"id"`
		File string `json:"file"`
		Func string `json:"func,omitempty"`
		Line int    `json:"line"`
		Kind string `json:"kind"`
	}

	Meta struct {
		Size  int    `json:"size"`
		Edges []Edge `json:"edges"`
	}
)

const (
	DefaultImport = "nikand.dev/go/fuzz/cover"
	DefaultAlias  = "fuzzcover"

	// ReserveFileName sorts before usual file names,
	// so the go tool initializes its variables first in the package.
	ReserveFileName = "0000_fuzzcover.go"
)

// Edge kinds.
const (
	KindFunc  = "func"
	KindBlock = "block"
	KindCase  = "case"
	KindComm  = "comm"
)

func New() *Instrumenter {
	return &Instrumenter{
		Import: DefaultImport,
		Alias:  DefaultAlias,
	}
}

// File returns woven src.
// File with no blocks is returned as is.
//
// The table reservation is the first package variable of the woven file,
// so it runs before any init function or later variable initializer of the file.
func (in *Instrumenter) File(name string, src []byte) (_ []byte, err error) {
	fset := token.NewFileSet()
	dec := decorator.NewDecorator(fset)

	f, err := dec.ParseFile(name, src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", name)
	}

	first := in.Next
	var fn string

	line := func(n dst.Node) int {
		an, ok := dec.Map.Ast.Nodes[n]
		if !ok {
			return 0
		}

		return fset.Position(an.Pos()).Line
	}

	hit := func(n dst.Node, kind string) dst.Stmt {
		id := in.Next
		in.Next++

		in.Edges = append(in.Edges, Edge{
			ID:   id,
			File: name,
			Func: fn,
			Line: line(n),
			Kind: kind,
		})

		return in.call("Hit", id)
	}

	dstutil.Apply(f, func(c *dstutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *dst.FuncDecl:
			fn = funcName(n)
		case *dst.BlockStmt:
			kind := KindBlock

			switch c.Parent().(type) {
			case *dst.SwitchStmt, *dst.TypeSwitchStmt, *dst.SelectStmt:
				return true
			case *dst.FuncDecl, *dst.FuncLit:
				kind = KindFunc
			}

			n.List = prepend(n.List, hit(n, kind))
		case *dst.CaseClause:
			n.Body = prepend(n.Body, hit(n, KindCase))
		case *dst.CommClause:
			n.Body = prepend(n.Body, hit(n, KindComm))
		}

		return true
	}, func(c *dstutil.Cursor) bool {
		if _, ok := c.Node().(*dst.FuncDecl); ok {
			fn = ""
		}

		return true
	})

	tlog.V("instrument").Printw("file instrumented", "file", name, "first", first, "edges", in.Next-first)

	if in.Next == first {
		return src, nil
	}

	in.Package = f.Name.Name

	imports := 0
	for _, d := range f.Decls {
		if g, ok := d.(*dst.GenDecl); !ok || g.Tok != token.IMPORT {
			break
		}

		imports++
	}

	decls := make([]dst.Decl, 0, len(f.Decls)+2)
	decls = append(decls, in.importDecl())
	decls = append(decls, f.Decls[:imports]...)
	decls = append(decls, in.reserveDecl(in.Next))
	decls = append(decls, f.Decls[imports:]...)

	f.Decls = decls

	var buf bytes.Buffer

	err = decorator.Fprint(&buf, f)
	if err != nil {
		return nil, errors.Wrap(err, "print %v", name)
	}

	return buf.Bytes(), nil
}

// ReserveFile generates a file for the woven package reserving all the edges woven so far.
// It's meant to be saved as ReserveFileName next to the woven files.
func (in *Instrumenter) ReserveFile() ([]byte, error) {
	if in.Package == "" {
		return nil, errors.New("nothing woven")
	}

	f := &dst.File{
		Name:  dst.NewIdent(in.Package),
		Decls: []dst.Decl{in.importDecl(), in.reserveDecl(in.Next)},
	}

	var buf bytes.Buffer

	err := decorator.Fprint(&buf, f)
	if err != nil {
		return nil, errors.Wrap(err, "print")
	}

	return buf.Bytes(), nil
}

// Meta describes all the edges woven so far.
func (in *Instrumenter) Meta() Meta {
	return Meta{
		Size:  in.Next,
		Edges: in.Edges,
	}
}

func (in *Instrumenter) WriteMeta(w io.Writer) error {
	data, err := json.MarshalIndent(in.Meta(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal")
	}

	data = append(data, '\n')

	_, err = w.Write(data)
	if err != nil {
		return errors.Wrap(err, "write")
	}

	return nil
}

func (in *Instrumenter) importDecl() dst.Decl {
	return &dst.GenDecl{
		Tok: token.IMPORT,
		Specs: []dst.Spec{
			&dst.ImportSpec{
				Name: dst.NewIdent(in.Alias),
				Path: &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(in.Import)},
			},
		},
	}
}

// reserveDecl is `var _ = cover.Reserve(n)`.
func (in *Instrumenter) reserveDecl(n int) dst.Decl {
	return &dst.GenDecl{
		Tok: token.VAR,
		Specs: []dst.Spec{
			&dst.ValueSpec{
				Names:  []*dst.Ident{dst.NewIdent("_")},
				Values: []dst.Expr{in.callExpr("Reserve", n)},
			},
		},
		Decs: dst.GenDeclDecorations{
			NodeDecs: dst.NodeDecs{Before: dst.EmptyLine, After: dst.EmptyLine},
		},
	}
}

func (in *Instrumenter) call(f string, id int) dst.Stmt {
	return &dst.ExprStmt{X: in.callExpr(f, id)}
}

func (in *Instrumenter) callExpr(f string, id int) *dst.CallExpr {
	return &dst.CallExpr{
		Fun: &dst.SelectorExpr{
			X:   dst.NewIdent(in.Alias),
			Sel: dst.NewIdent(f),
		},
		Args: []dst.Expr{
			&dst.BasicLit{Kind: token.INT, Value: strconv.Itoa(id)},
		},
	}
}

func prepend(l []dst.Stmt, s dst.Stmt) []dst.Stmt {
	return append([]dst.Stmt{s}, l...)
}

func funcName(f *dst.FuncDecl) string {
	if f.Recv == nil || len(f.Recv.List) == 0 {
		return f.Name.Name
	}

	return recvName(f.Recv.List[0].Type) + "." + f.Name.Name
}

func recvName(e dst.Expr) string {
	switch e := e.(type) {
	case *dst.StarExpr:
		return recvName(e.X)
	case *dst.IndexExpr:
		return recvName(e.X)
	case *dst.IndexListExpr:
		return recvName(e.X)
	case *dst.Ident:
		return e.Name
	}

	return "?"
}
