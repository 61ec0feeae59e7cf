package contour

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

// Region is an allowed area of the (x, y) plane. Grid nodes outside it are
// not interpolated and contours never cross into it. A nil *Region allows
// everything.
type Region struct {
	expr string
	pred func(x, y float64) bool
}

// NewRegion wraps a predicate. name is used for logging only.
func NewRegion(name string, pred func(x, y float64) bool) *Region {
	return &Region{expr: name, pred: pred}
}

// ParseRegion compiles a boolean expression over x and y, for example
// "y <= x" or "mn2 <= msb - 10 && mn2 >= 0". The identifiers x and y are
// always available; xVar and yVar are accepted as aliases. Supported:
// numeric literals, + - * /, comparisons, && || !, parentheses and the
// functions abs, sqrt, exp, log, log10, pow, min, max.
func ParseRegion(expr, xVar, yVar string) (*Region, error) {
	tree, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: region %q: %v", ErrConfig, expr, err)
	}
	c := regionCompiler{xVar: xVar, yVar: yVar}
	pred, err := c.boolean(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: region %q: %v", ErrConfig, expr, err)
	}
	return &Region{expr: expr, pred: pred}, nil
}

// Contains reports whether (x, y) is allowed.
func (r *Region) Contains(x, y float64) bool {
	if r == nil || r.pred == nil {
		return true
	}
	return r.pred(x, y)
}

func (r *Region) String() string {
	if r == nil {
		return "<everywhere>"
	}
	return r.expr
}

type (
	numFunc  func(x, y float64) float64
	boolFunc func(x, y float64) bool
)

type regionCompiler struct {
	xVar string
	yVar string
}

func (c regionCompiler) boolean(e ast.Expr) (boolFunc, error) {
	switch n := e.(type) {
	case *ast.ParenExpr:
		return c.boolean(n.X)
	case *ast.UnaryExpr:
		if n.Op != token.NOT {
			return nil, fmt.Errorf("operator %s does not yield a condition", n.Op)
		}
		inner, err := c.boolean(n.X)
		if err != nil {
			return nil, err
		}
		return func(x, y float64) bool { return !inner(x, y) }, nil
	case *ast.BinaryExpr:
		switch n.Op {
		case token.LAND, token.LOR:
			l, err := c.boolean(n.X)
			if err != nil {
				return nil, err
			}
			r, err := c.boolean(n.Y)
			if err != nil {
				return nil, err
			}
			if n.Op == token.LAND {
				return func(x, y float64) bool { return l(x, y) && r(x, y) }, nil
			}
			return func(x, y float64) bool { return l(x, y) || r(x, y) }, nil
		case token.LSS, token.LEQ, token.GTR, token.GEQ, token.EQL, token.NEQ:
			l, err := c.number(n.X)
			if err != nil {
				return nil, err
			}
			r, err := c.number(n.Y)
			if err != nil {
				return nil, err
			}
			return compare(n.Op, l, r), nil
		}
		return nil, fmt.Errorf("operator %s does not yield a condition", n.Op)
	}
	return nil, fmt.Errorf("expression %T is not a condition", e)
}

func compare(op token.Token, l, r numFunc) boolFunc {
	switch op {
	case token.LSS:
		return func(x, y float64) bool { return l(x, y) < r(x, y) }
	case token.LEQ:
		return func(x, y float64) bool { return l(x, y) <= r(x, y) }
	case token.GTR:
		return func(x, y float64) bool { return l(x, y) > r(x, y) }
	case token.GEQ:
		return func(x, y float64) bool { return l(x, y) >= r(x, y) }
	case token.EQL:
		return func(x, y float64) bool { return l(x, y) == r(x, y) }
	default:
		return func(x, y float64) bool { return l(x, y) != r(x, y) }
	}
}

func (c regionCompiler) number(e ast.Expr) (numFunc, error) {
	switch n := e.(type) {
	case *ast.ParenExpr:
		return c.number(n.X)
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return nil, fmt.Errorf("literal %s is not a number", n.Value)
		}
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, err
		}
		return func(float64, float64) float64 { return v }, nil
	case *ast.Ident:
		switch n.Name {
		case "x", c.xVar:
			return func(x, _ float64) float64 { return x }, nil
		case "y", c.yVar:
			return func(_, y float64) float64 { return y }, nil
		}
		return nil, fmt.Errorf("unknown variable %q", n.Name)
	case *ast.UnaryExpr:
		inner, err := c.number(n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.SUB:
			return func(x, y float64) float64 { return -inner(x, y) }, nil
		case token.ADD:
			return inner, nil
		}
		return nil, fmt.Errorf("operator %s is not numeric", n.Op)
	case *ast.BinaryExpr:
		l, err := c.number(n.X)
		if err != nil {
			return nil, err
		}
		r, err := c.number(n.Y)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.ADD:
			return func(x, y float64) float64 { return l(x, y) + r(x, y) }, nil
		case token.SUB:
			return func(x, y float64) float64 { return l(x, y) - r(x, y) }, nil
		case token.MUL:
			return func(x, y float64) float64 { return l(x, y) * r(x, y) }, nil
		case token.QUO:
			return func(x, y float64) float64 { return l(x, y) / r(x, y) }, nil
		}
		return nil, fmt.Errorf("operator %s is not numeric", n.Op)
	case *ast.CallExpr:
		return c.call(n)
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

var unaryFuncs = map[string]func(float64) float64{
	"abs":   math.Abs,
	"sqrt":  math.Sqrt,
	"exp":   math.Exp,
	"log":   math.Log,
	"log10": math.Log10,
}

var binaryFuncs = map[string]func(float64, float64) float64{
	"pow": math.Pow,
	"min": math.Min,
	"max": math.Max,
}

func (c regionCompiler) call(n *ast.CallExpr) (numFunc, error) {
	name, ok := n.Fun.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("unsupported call")
	}
	args := make([]numFunc, len(n.Args))
	for i, a := range n.Args {
		f, err := c.number(a)
		if err != nil {
			return nil, err
		}
		args[i] = f
	}
	if fn, ok := unaryFuncs[name.Name]; ok {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, got %d", name.Name, len(args))
		}
		a := args[0]
		return func(x, y float64) float64 { return fn(a(x, y)) }, nil
	}
	if fn, ok := binaryFuncs[name.Name]; ok {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes 2 arguments, got %d", name.Name, len(args))
		}
		a, b := args[0], args[1]
		return func(x, y float64) float64 { return fn(a(x, y), b(x, y)) }, nil
	}
	return nil, fmt.Errorf("unknown function %q", name.Name)
}
