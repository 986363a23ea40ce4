package repl

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
)

// Format selects how results are rendered
type Format string

const (
	FormatCanonical Format = "canonical"
	FormatTree      Format = "tree"
	FormatJSON      Format = "json"
	FormatYAML      Format = "yaml"
)

// Formats lists the supported output formats
func Formats() []Format {
	return []Format{FormatCanonical, FormatTree, FormatJSON, FormatYAML}
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	want := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range Formats() {
		if f == want {
			return f, nil
		}
	}
	return "", mdwerror.Newf("unknown format %q, expected canonical, tree, json or yaml", s).
		WithCode(mdwerror.CodeInvalidInput).
		WithDetail("format", s)
}

// Render renders a parsed tree
func Render(node mdwast.Node, format Format) (string, error) {
	switch format {
	case FormatTree:
		return strings.TrimRight(mdwast.Tree(node), "\n"), nil
	case FormatJSON:
		return encodeJSON(mdwast.ToMap(node))
	case FormatYAML:
		return encodeYAML(mdwast.ToMap(node))
	default:
		return mdwast.Canonical(node), nil
	}
}

// RenderValue renders an evaluated line. Canonical and tree output show the
// value only; the structured formats include the tree.
func RenderValue(node mdwast.Node, value float64, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(valueDocument(node, value))
	case FormatYAML:
		return encodeYAML(valueDocument(node, value))
	default:
		return mdwast.FormatNumber(value), nil
	}
}

func valueDocument(node mdwast.Node, value float64) map[string]interface{} {
	return map[string]interface{}{
		"expression": mdwast.Canonical(node),
		"value":      value,
		"ast":        mdwast.ToMap(node),
	}
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", mdwerror.Wrap(err, "failed to encode JSON").WithCode(mdwerror.CodeInternal)
	}
	return string(data), nil
}

func encodeYAML(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", mdwerror.Wrap(err, "failed to encode YAML").WithCode(mdwerror.CodeInternal)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// FormatError renders an error for the terminal. When input is given and the
// error carries an offset, a caret line points at the failing column.
func FormatError(err error, input string) string {
	if err == nil {
		return ""
	}

	code := mdwerror.GetCode(err)
	var sb strings.Builder
	fmt.Fprintf(&sb, "error[%s]: %s", code, err.Error())

	offset, ok := ErrorOffset(err)
	if ok && input != "" && offset >= 0 && offset <= len(input) {
		fmt.Fprintf(&sb, "\n  %s\n  %s^", input, strings.Repeat(" ", offset))
	}
	return sb.String()
}

// ErrorOffset returns the input offset an error points at
func ErrorOffset(err error) (int, bool) {
	v, ok := mdwerror.GetDetail(err, "offset")
	if !ok {
		return 0, false
	}
	offset, ok := v.(int)
	return offset, ok
}
