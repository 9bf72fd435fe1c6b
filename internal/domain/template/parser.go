package template

import "fmt"

// node is an expression AST node.
type node interface{}

type (
	// pathNode resolves a dotted path against the event or state root.
	pathNode struct {
		Root string   // "event", "result", "state", "project_state"
		Segs []string // remaining segments; numeric segments index slices
	}

	// litNode is a literal scalar.
	litNode struct {
		Value any
	}

	// condNode is the inline conditional: Then if Cond else Else.
	condNode struct {
		Then node
		Cond node
		Else node
	}

	// binNode is a binary operation: ==, !=, in, and, or.
	binNode struct {
		Op    string
		Left  node
		Right node
	}

	// notNode negates its operand's truthiness.
	notNode struct {
		X node
	}

	// callNode is a whitelisted builtin call, e.g. uuid().
	callNode struct {
		Name string
		Args []node
	}

	// filterNode applies a postfix filter to a receiver, e.g.
	// event.content.features.join(", ").
	filterNode struct {
		Recv node
		Name string
		Args []node
	}
)

// pathRoots are the recognized expression roots. "result" aliases
// "event" and "project_state" aliases "state", matching the definition
// syntax the original config files use.
var pathRoots = map[string]string{
	"event":         "event",
	"result":        "event",
	"state":         "state",
	"project_state": "state",
}

// filterNames is the closed set of postfix filters.
var filterNames = map[string]bool{
	"join":    true,
	"replace": true,
	"strip":   true,
}

// builtinNames is the closed set of callable builtins.
var builtinNames = map[string]bool{
	"uuid": true,
}

type parser struct {
	toks []token
	pos  int
}

// parseExpr parses a full expression and requires EOF afterwards.
func parseExpr(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.conditional()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("template: trailing tokens at %d in %q", p.peek().pos, src)
	}
	return n, nil
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) isKw(s string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == s
}

// conditional := or ("if" or "else" conditional)?
func (p *parser) conditional() (node, error) {
	then, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.isKw("if") {
		return then, nil
	}
	p.next()
	cond, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.isKw("else") {
		return nil, fmt.Errorf("template: conditional missing else at %d", p.peek().pos)
	}
	p.next()
	els, err := p.conditional()
	if err != nil {
		return nil, err
	}
	return &condNode{Then: then, Cond: cond, Else: els}, nil
}

// or := and ("or" and)*
func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.isKw("or") {
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &binNode{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

// and := equality ("and" equality)*
func (p *parser) and() (node, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.isKw("and") {
		p.next()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &binNode{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

// equality := membership (("==" | "!=") membership)?
func (p *parser) equality() (node, error) {
	left, err := p.membership()
	if err != nil {
		return nil, err
	}
	if k := p.peek().kind; k == tokEq || k == tokNeq {
		op := p.next().text
		right, err := p.membership()
		if err != nil {
			return nil, err
		}
		return &binNode{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// membership := unary ("in" unary)?
func (p *parser) membership() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	if p.isKw("in") {
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &binNode{Op: "in", Left: left, Right: right}, nil
	}
	return left, nil
}

// unary := "not" unary | postfix
func (p *parser) unary() (node, error) {
	if p.isKw("not") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &notNode{X: x}, nil
	}
	return p.postfix()
}

// postfix := primary ("." segment | "." filter "(" args ")")*
func (p *parser) postfix() (node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokDot {
		p.next()
		seg := p.next()
		if seg.kind != tokIdent && seg.kind != tokNumber {
			return nil, fmt.Errorf("template: expected path segment at %d", seg.pos)
		}
		// Filter call: known filter name followed by parentheses.
		if seg.kind == tokIdent && filterNames[seg.text] && p.peek().kind == tokLParen {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			n = &filterNode{Recv: n, Name: seg.text, Args: args}
			continue
		}
		pn, ok := n.(*pathNode)
		if !ok {
			return nil, fmt.Errorf("template: cannot index into expression at %d", seg.pos)
		}
		pn.Segs = append(pn.Segs, seg.text)
	}
	return n, nil
}

// primary := literal | path root | builtin call | "(" expr ")"
func (p *parser) primary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.next()
		n, err := p.conditional()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("template: missing ) at %d", p.peek().pos)
		}
		p.next()
		return n, nil
	case tokString:
		p.next()
		return &litNode{Value: t.text}, nil
	case tokNumber:
		p.next()
		return &litNode{Value: parseInt(t.text)}, nil
	case tokIdent:
		switch t.text {
		case "true", "True":
			p.next()
			return &litNode{Value: true}, nil
		case "false", "False":
			p.next()
			return &litNode{Value: false}, nil
		case "None", "null":
			p.next()
			return &litNode{Value: nil}, nil
		}
		if root, ok := pathRoots[t.text]; ok {
			p.next()
			return &pathNode{Root: root}, nil
		}
		if builtinNames[t.text] {
			p.next()
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			return &callNode{Name: t.text, Args: args}, nil
		}
		return nil, fmt.Errorf("template: unknown identifier %q at %d", t.text, t.pos)
	default:
		return nil, fmt.Errorf("template: unexpected token at %d", t.pos)
	}
}

// args parses a parenthesized, comma-separated argument list.
func (p *parser) args() ([]node, error) {
	if p.peek().kind != tokLParen {
		return nil, fmt.Errorf("template: expected ( at %d", p.peek().pos)
	}
	p.next()
	var out []node
	if p.peek().kind == tokRParen {
		p.next()
		return out, nil
	}
	for {
		a, err := p.conditional()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return out, nil
		default:
			return nil, fmt.Errorf("template: expected , or ) at %d", p.peek().pos)
		}
	}
}
