// File: eval.go
// Title: Expression Evaluator
// Description: Evaluates parsed trees over float64 values against an Env.
//              Assignments store into the environment and yield the
//              assigned value, so a = b = 2 sets both variables. Results
//              are always finite.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation
// - 2026-10-17 v0.2.0: Overflow to infinity is an error

package eval

import (
	"math"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/ast"
)

// Options configures the evaluator
type Options struct {
	Logger *mdwlog.Logger
	Env    *Env // nil creates a fresh environment
}

// Evaluator evaluates trees against one environment
type Evaluator struct {
	env    *Env
	logger *mdwlog.Logger
}

// New creates an evaluator
func New(opts Options) *Evaluator {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Env == nil {
		opts.Env = NewEnv()
	}
	return &Evaluator{
		env:    opts.Env,
		logger: opts.Logger.WithField("component", "expr-eval"),
	}
}

// Env returns the environment of the evaluator
func (e *Evaluator) Env() *Env {
	return e.env
}

// Eval evaluates node. On error no assignment of the failing subtree is
// applied; assignments completed before the failure remain.
func (e *Evaluator) Eval(node ast.Node) (float64, error) {
	value, err := e.eval(node)
	if err != nil {
		e.logger.LogError("evaluation failed", err)
		return 0, err
	}
	e.logger.Trace("evaluated", mdwlog.Fields{"value": value})
	return value, nil
}

func (e *Evaluator) eval(node ast.Node) (float64, error) {
	switch n := node.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.Identifier:
		v, ok := e.env.Get(n.Name)
		if !ok {
			return 0, mdwerror.Newf("undefined variable %q", n.Name).
				WithCode(mdwerror.CodeUndefinedVariable).
				WithDetail("name", n.Name).
				WithDetail("offset", n.Pos.Offset)
		}
		return v, nil

	case *ast.UnaryOp:
		operand, err := e.eval(n.Operand)
		if err != nil {
			return 0, err
		}
		switch n.Operator {
		case "+":
			return operand, nil
		case "-":
			return -operand, nil
		}
		return 0, unknownOperator("unary", n.Operator, n.Pos)

	case *ast.BinaryOp:
		if n.IsAssignment() {
			return e.assign(n)
		}
		left, err := e.eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return 0, err
		}
		var result float64
		switch n.Operator {
		case "+":
			result = left + right
		case "-":
			result = left - right
		case "*":
			result = left * right
		case "/":
			if right == 0 {
				return 0, mdwerror.New("division by zero").
					WithCode(mdwerror.CodeDivisionByZero).
					WithDetail("offset", n.Pos.Offset)
			}
			result = left / right
		default:
			return 0, unknownOperator("binary", n.Operator, n.Pos)
		}
		if math.IsInf(result, 0) || math.IsNaN(result) {
			return 0, mdwerror.Newf("result of %q is out of range", n.Operator).
				WithCode(mdwerror.CodeOverflow).
				WithDetail("operator", n.Operator).
				WithDetail("offset", n.Pos.Offset)
		}
		return result, nil

	case nil:
		return 0, mdwerror.New("cannot evaluate empty expression").WithCode(mdwerror.CodeInvalidInput)

	default:
		return 0, mdwerror.Newf("unsupported node %T", node).WithCode(mdwerror.CodeInternal)
	}
}

func (e *Evaluator) assign(n *ast.BinaryOp) (float64, error) {
	target, ok := n.Left.(*ast.Identifier)
	if !ok {
		return 0, mdwerror.Newf("cannot assign to %s", n.Left).
			WithCode(mdwerror.CodeInvalidAssignment).
			WithDetail("offset", n.Pos.Offset)
	}

	value, err := e.eval(n.Right)
	if err != nil {
		return 0, err
	}
	e.env.Set(target.Name, value)
	e.logger.Trace("assigned", mdwlog.Fields{"name": target.Name, "value": value})
	return value, nil
}

func unknownOperator(position, operator string, pos ast.Position) error {
	return mdwerror.Newf("unknown %s operator %q", position, operator).
		WithCode(mdwerror.CodeUnknownOperator).
		WithDetail("operator", operator).
		WithDetail("offset", pos.Offset)
}
