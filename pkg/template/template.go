// Package template implements the small Go-compatible "{{ ... }}" templating
// language used to render sink layouts and header values. It is a hand-rolled
// AST interpreter rather than a wrapper around text/template: the grammar is
// small enough that a regex-aided splitter is sufficient, as opposed to a
// proper lexer.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// exprRe finds every {{ ... }} block in a template string, non-greedily so
// adjacent blocks don't get merged into one match.
var exprRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Template is a parsed sequence of literal text and expressions.
type Template struct {
	segments []segment
}

type segment struct {
	text   string
	expr   *pipeline
	isExpr bool
}

// pipeline is a parsed "expr | f1 | f2 arg" expression: a source stage
// followed by zero or more call stages that each receive the previous
// stage's result as their first argument.
type pipeline struct {
	source stage
	calls  []callStage
}

type stageKind int

const (
	kindFieldPath stageKind = iota
	kindLiteral
	kindCall
)

type stage struct {
	kind    stageKind
	path    []string
	literal any
	call    callStage
}

type callStage struct {
	name string
	args []argNode
}

type argNode struct {
	isPath  bool
	path    []string
	literal any
}

var parseCache sync.Map // string -> *Template

// Parse compiles a template string into a reusable Template. Parse errors
// are returned for expressions this grammar cannot represent; they are not
// expected to occur for well-formed layouts.
func Parse(text string) (*Template, error) {
	if cached, ok := parseCache.Load(text); ok {
		return cached.(*Template), nil
	}

	var segments []segment
	last := 0
	matches := exprRe.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		exprStart, exprEnd := m[2], m[3]
		if start > last {
			segments = append(segments, segment{text: text[last:start]})
		}
		exprText := strings.TrimSpace(text[exprStart:exprEnd])
		p, err := parsePipeline(exprText)
		if err != nil {
			return nil, fmt.Errorf("template: %q: %w", exprText, err)
		}
		segments = append(segments, segment{expr: p, isExpr: true})
		last = end
	}
	if last < len(text) {
		segments = append(segments, segment{text: text[last:]})
	}

	tmpl := &Template{segments: segments}
	parseCache.Store(text, tmpl)
	return tmpl, nil
}

func parsePipeline(expr string) (*pipeline, error) {
	parts := splitTopLevel(expr, '|')
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	source, err := parseStage(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}

	p := &pipeline{source: source}
	for _, raw := range parts[1:] {
		cs, err := parseCallStage(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		p.calls = append(p.calls, cs)
	}
	return p, nil
}

// parseStage parses the first stage of a pipeline, which may be a field
// path, a literal, or a function call (bare, as in "now", or with args).
func parseStage(s string) (stage, error) {
	tokens := tokenize(s)
	if len(tokens) == 0 {
		return stage{}, fmt.Errorf("empty stage")
	}
	if len(tokens) == 1 {
		tok := tokens[0]
		if strings.HasPrefix(tok, ".") {
			return stage{kind: kindFieldPath, path: splitFieldPath(tok)}, nil
		}
		if isQuoted(tok) || isInteger(tok) {
			lit, _, _ := parseAtom(tok)
			return stage{kind: kindLiteral, literal: lit}, nil
		}
		if isFuncName(tok) {
			return stage{kind: kindCall, call: callStage{name: tok}}, nil
		}
		return stage{kind: kindLiteral, literal: tok}, nil
	}
	cs, err := parseDirectCall(s)
	if err != nil {
		return stage{}, err
	}
	return stage{kind: kindCall, call: cs}, nil
}

// parseDirectCall parses a full function call written out as the first
// stage of a pipeline, e.g. "replace \"old\" \"new\" .Field". A handful of
// functions (replace, default) document their subject argument last in
// this written form but, as a pipeline continuation, receive it first (the
// previous stage's value is always prepended) -- normalizeDirectCallArgs
// reorders the literal tokens so callFunc sees the same argument order
// regardless of which form produced the call.
func parseDirectCall(s string) (callStage, error) {
	cs, err := parseCallStage(s)
	if err != nil {
		return callStage{}, err
	}
	cs.args = normalizeDirectCallArgs(cs.name, cs.args)
	return cs, nil
}

func normalizeDirectCallArgs(name string, args []argNode) []argNode {
	switch name {
	case "replace":
		if len(args) == 3 {
			return []argNode{args[2], args[0], args[1]}
		}
	case "default", "contains", "hasPrefix", "hasSuffix":
		if len(args) == 2 {
			return []argNode{args[1], args[0]}
		}
	}
	return args
}

func parseCallStage(s string) (callStage, error) {
	tokens := tokenize(s)
	if len(tokens) == 0 {
		return callStage{}, fmt.Errorf("empty function call")
	}
	name := tokens[0]
	var args []argNode
	for _, tok := range tokens[1:] {
		args = append(args, parseArg(tok))
	}
	return callStage{name: name, args: args}, nil
}

func parseArg(tok string) argNode {
	if strings.HasPrefix(tok, ".") {
		return argNode{isPath: true, path: splitFieldPath(tok)}
	}
	lit, _, isPath := parseAtom(tok)
	if isPath {
		return argNode{isPath: true, path: splitFieldPath(tok)}
	}
	return argNode{literal: lit}
}

// parseAtom classifies a single token as a field path, a quoted-string
// literal, an integer literal, or (falling through) a bare word treated as
// a string literal. The middle return value reports whether the literal
// value is meaningful; the third reports whether it is a field path.
func parseAtom(tok string) (any, bool, bool) {
	if strings.HasPrefix(tok, ".") {
		return nil, false, true
	}
	if isQuoted(tok) {
		return tok[1 : len(tok)-1], true, false
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return n, true, false
	}
	return tok, true, false
}

func isQuoted(tok string) bool {
	return len(tok) >= 2 && (tok[0] == '"' || tok[0] == '\'') && tok[len(tok)-1] == tok[0]
}

func isInteger(tok string) bool {
	_, err := strconv.ParseInt(tok, 10, 64)
	return err == nil
}

func splitFieldPath(tok string) []string {
	tok = strings.TrimPrefix(tok, ".")
	if tok == "" {
		return nil
	}
	return strings.Split(tok, ".")
}

// tokenize splits a stage's text on whitespace, respecting single- and
// double-quoted substrings so quoted arguments may contain spaces.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t':
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// splitTopLevel splits s on sep, ignoring occurrences inside quotes.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}
