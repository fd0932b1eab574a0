package checker

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"candycheck/internal/logging"
)

// Declared is one name a piece of source declares.
type Declared struct {
	Name string
	Kind string // function | class | variable
	Line int
}

// Extractor pulls declared names out of Python source. Implementations
// must degrade to an empty result on unparseable input rather than
// fail: extraction only feeds advisory naming checks.
type Extractor interface {
	Extract(source []byte) []Declared
}

// TreeSitterExtractor extracts declarations with a real Python parse.
// It walks function, class and decorated definitions at any depth and
// assignments at module level only.
type TreeSitterExtractor struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewExtractor builds a TreeSitterExtractor with the Python grammar.
func NewExtractor() *TreeSitterExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &TreeSitterExtractor{parser: parser}
}

// Extract returns the declarations in source in document order. Parse
// failures return nil.
func (e *TreeSitterExtractor) Extract(source []byte) []Declared {
	// sitter.Parser is not safe for concurrent use.
	e.mu.Lock()
	defer e.mu.Unlock()

	tree, err := e.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		logging.CheckerDebug("identifier extraction degraded: %v", err)
		return nil
	}
	defer tree.Close()

	var out []Declared
	walkDeclarations(tree.RootNode(), source, true, &out)
	logging.CheckerDebug("extracted %d declarations", len(out))
	return out
}

func walkDeclarations(node *sitter.Node, source []byte, topLevel bool, out *[]Declared) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			appendNamed(child, source, "function", out)
			if body := child.ChildByFieldName("body"); body != nil {
				walkDeclarations(body, source, false, out)
			}

		case "class_definition":
			appendNamed(child, source, "class", out)
			if body := child.ChildByFieldName("body"); body != nil {
				walkDeclarations(body, source, false, out)
			}

		case "decorated_definition":
			// The decorator wraps the real definition one level down.
			walkDeclarations(child, source, topLevel, out)

		case "expression_statement":
			if !topLevel {
				continue
			}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				if inner.Type() != "assignment" {
					continue
				}
				left := inner.ChildByFieldName("left")
				if left == nil || left.Type() != "identifier" {
					continue
				}
				*out = append(*out, Declared{
					Name: string(source[left.StartByte():left.EndByte()]),
					Kind: "variable",
					Line: int(left.StartPoint().Row) + 1,
				})
			}

		default:
			walkDeclarations(child, source, false, out)
		}
	}
}

func appendNamed(node *sitter.Node, source []byte, kind string, out *[]Declared) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	*out = append(*out, Declared{
		Name: string(source[name.StartByte():name.EndByte()]),
		Kind: kind,
		Line: int(node.StartPoint().Row) + 1,
	})
}
