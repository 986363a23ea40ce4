// Package eval evaluates expression trees over float64 values.
//
// Variables live in a flat Env; there is no scoping. Identifiers must be
// assigned before use, division by zero is an error and only identifiers
// can be assigned to. Errors carry EVAL_* codes.
//
//	ev := eval.New(eval.Options{})
//	node, _ := parser.Parse("r = 2")
//	ev.Eval(node) // 2, and r is now defined
package eval
