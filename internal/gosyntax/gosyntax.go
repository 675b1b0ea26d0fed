// Package gosyntax implements the two free-identifier substitution
// strategies the reducer uses when rewriting an expression to reference
// a renamed or inlined node: a fast word-boundary textual replace, and a
// tree-sitter-backed syntax-aware replace for expressions whose string
// or rune literals might otherwise collide with an identifier-shaped
// substring.
package gosyntax

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Rename is one free-identifier substitution to apply: every occurrence
// of From becomes To.
type Rename struct {
	From string
	To   string
}

// SubstituteTextual rewrites expr using word-boundary regular
// expressions. It is the default strategy: fast, and correct for the
// overwhelming majority of emitted expressions, which contain no string
// or rune literal that happens to look like an identifier being renamed.
func SubstituteTextual(expr string, renames []Rename) string {
	for _, r := range renames {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(r.From) + `\b`)
		expr = re.ReplaceAllString(expr, r.To)
	}
	return expr
}

var parserPool = make(chan *sitter.Parser, 1)

func getParser() *sitter.Parser {
	select {
	case p := <-parserPool:
		return p
	default:
		p := sitter.NewParser()
		p.SetLanguage(golang.GetLanguage())
		return p
	}
}

func putParser(p *sitter.Parser) {
	select {
	case parserPool <- p:
	default:
	}
}

// SubstituteSyntaxTree rewrites expr by parsing it as a Go source
// snippet, walking every identifier node via tree-sitter, and rewriting
// byte ranges from the end of the string backward so earlier offsets
// stay valid across edits. Selector-expression field positions
// (x.Field) are excluded: a field named the same as a node being renamed
// must not be rewritten, only free references to that name. This is the
// only strategy safe when expr's string or rune literals contain
// identifier-shaped substrings that a textual regex would also match.
func SubstituteSyntaxTree(expr string, renames []Rename) (string, error) {
	renameSet := make(map[string]string, len(renames))
	for _, r := range renames {
		renameSet[r.From] = r.To
	}

	wrapped := "package p\n\nvar _ = " + expr + "\n"
	source := []byte(wrapped)

	parser := getParser()
	defer putParser(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return "", fmt.Errorf("gosyntax: parsing expression: %w", err)
	}
	defer tree.Close()

	type edit struct {
		start, end uint32
		text       string
	}
	var edits []edit

	fieldPositions := make(map[[2]uint32]bool)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "selector_expression" {
			if field := n.ChildByFieldName("field"); field != nil {
				fieldPositions[[2]uint32{field.StartByte(), field.EndByte()}] = true
			}
		}
		if n.Type() == "identifier" {
			if !fieldPositions[[2]uint32{n.StartByte(), n.EndByte()}] {
				name := n.Content(source)
				if to, ok := renameSet[name]; ok {
					edits = append(edits, edit{start: n.StartByte(), end: n.EndByte(), text: to})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())

	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	out := append([]byte(nil), source...)
	for _, e := range edits {
		rewritten := append([]byte(nil), out[:e.start]...)
		rewritten = append(rewritten, []byte(e.text)...)
		rewritten = append(rewritten, out[e.end:]...)
		out = rewritten
	}

	result := string(out)
	const prefix = "package p\n\nvar _ = "
	const suffix = "\n"
	if len(result) < len(prefix)+len(suffix) {
		return "", fmt.Errorf("gosyntax: rewritten expression shorter than wrapper")
	}
	return result[len(prefix) : len(result)-len(suffix)], nil
}
