package querylang

import (
	"strconv"
)

// Parse tokenizes and parses a snippet into a Program. The returned error is
// always a *SyntaxError describing the first problem found.
func Parse(src string) (*Program, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.bump(); err != nil {
		return nil, err
	}
	prog := &Program{}
	for p.tok.typ != tokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
		// Optional statement separator.
		if p.isPunct(";") {
			if err := p.bump(); err != nil {
				return nil, err
			}
		}
	}
	return prog, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) bump() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lex.errorf(p.tok.pos, format, args...)
}

func (p *parser) isPunct(lit string) bool {
	return p.tok.typ == tokPunct && p.tok.lit == lit
}

func (p *parser) isOp(lit string) bool {
	return p.tok.typ == tokOperator && p.tok.lit == lit
}

func (p *parser) isKeyword(lit string) bool {
	return p.tok.typ == tokKeyword && p.tok.lit == lit
}

func (p *parser) expectPunct(lit string) error {
	if !p.isPunct(lit) {
		return p.errorf("expected %q, found %s", lit, p.tok)
	}
	return p.bump()
}

func (p *parser) parseStatement() (Node, error) {
	pos := p.tok.pos
	switch {
	case p.isKeyword("import"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		if p.tok.typ != tokIdent {
			return nil, p.errorf("expected module name after import, found %s", p.tok)
		}
		mod := p.tok.lit
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &ImportStmt{P: pos, Module: mod}, nil

	case p.isKeyword("if"):
		return p.parseIf()

	case p.isKeyword("for"):
		return p.parseFor()

	case p.isKeyword("while"):
		if err := p.bump(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{P: pos, Cond: cond, Body: body}, nil
	}

	// Assignment requires lookahead: IDENT '=' at statement start. The lexer
	// has single-token lookahead, so parse the expression first and rewrite a
	// bare identifier followed by '=' into an assignment.
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isOp("=") {
		ident, ok := expr.(*Ident)
		if !ok {
			return nil, p.errorf("cannot assign to %s expression", expr.Kind())
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{P: pos, Name: ident.Name, Value: value}, nil
	}
	return &ExprStmt{P: pos, X: expr}, nil
}

func (p *parser) parseIf() (Node, error) {
	pos := p.tok.pos
	if err := p.bump(); err != nil { // consume "if"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{P: pos, Cond: cond, Then: then}
	if p.isKeyword("else") {
		if err := p.bump(); err != nil {
			return nil, err
		}
		if p.isKeyword("if") {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = []Node{nested}
		} else {
			els, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = els
		}
	}
	return stmt, nil
}

func (p *parser) parseFor() (Node, error) {
	pos := p.tok.pos
	if err := p.bump(); err != nil { // consume "for"
		return nil, err
	}
	if p.tok.typ != tokIdent {
		return nil, p.errorf("expected loop variable, found %s", p.tok)
	}
	name := p.tok.lit
	if err := p.bump(); err != nil {
		return nil, err
	}
	if !p.isKeyword("in") {
		return nil, p.errorf("expected \"in\", found %s", p.tok)
	}
	if err := p.bump(); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{P: pos, Var: name, Iter: iter, Body: body}, nil
}

func (p *parser) parseBlock() ([]Node, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []Node
	for !p.isPunct("}") {
		if p.tok.typ == tokEOF {
			return nil, p.errorf("unexpected end of input, expected \"}\"")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.isPunct(";") {
			if err := p.bump(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.bump(); err != nil { // consume "}"
		return nil, err
	}
	return stmts, nil
}

// Expression precedence, lowest to highest:
//
//	||  &&  (== != < <= > >=)  (+ -)  (* / %)  unary  postfix
func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("||") {
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: pos, Op: "||", L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isOp("&&") {
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: pos, Op: "&&", L: left, R: right}
	}
	return left, nil
}

var comparisonOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokOperator && comparisonOps[p.tok.lit] {
		op := p.tok.lit
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: pos, Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.tok.lit
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: pos, Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("%") {
		op := p.tok.lit
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: pos, Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.isOp("-") || p.isOp("!") {
		op := p.tok.lit
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{P: pos, Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			pos := p.tok.pos
			if err := p.bump(); err != nil {
				return nil, err
			}
			if p.tok.typ != tokIdent {
				return nil, p.errorf("expected attribute name after \".\", found %s", p.tok)
			}
			x = &AttrExpr{P: pos, X: x, Name: p.tok.lit}
			if err := p.bump(); err != nil {
				return nil, err
			}

		case p.isPunct("("):
			call, err := p.parseCall(x)
			if err != nil {
				return nil, err
			}
			x = call

		case p.isPunct("["):
			pos := p.tok.pos
			if err := p.bump(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			x = &IndexExpr{P: pos, X: x, Index: idx}

		default:
			return x, nil
		}
	}
}

func (p *parser) parseCall(fn Node) (Node, error) {
	call := &CallExpr{P: p.tok.pos, Fn: fn}
	if err := p.bump(); err != nil { // consume "("
		return nil, err
	}
	for !p.isPunct(")") {
		if p.tok.typ == tokEOF {
			return nil, p.errorf("unexpected end of input in argument list")
		}
		// Keyword argument: IDENT ':' expr. Needs two-token lookahead, so
		// peek by saving the identifier and checking the next token.
		if p.tok.typ == tokIdent {
			name := p.tok.lit
			namePos := p.tok.pos
			if err := p.bump(); err != nil {
				return nil, err
			}
			if p.isPunct(":") {
				if err := p.bump(); err != nil {
					return nil, err
				}
				value, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				if len(call.KwNames) != len(call.KwValues) {
					return nil, p.errorf("internal: keyword argument mismatch")
				}
				call.KwNames = append(call.KwNames, name)
				call.KwValues = append(call.KwValues, value)
			} else {
				// Not a keyword argument: re-parse from the identifier as an
				// ordinary expression continuation.
				if len(call.KwNames) > 0 {
					return nil, p.errorf("positional argument after keyword argument")
				}
				expr, err := p.continuePostfix(&Ident{P: namePos, Name: name})
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, expr)
			}
		} else {
			if len(call.KwNames) > 0 {
				return nil, p.errorf("positional argument after keyword argument")
			}
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, expr)
		}
		if p.isPunct(",") {
			if err := p.bump(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct(")") {
			return nil, p.errorf("expected \",\" or \")\" in argument list, found %s", p.tok)
		}
	}
	if err := p.bump(); err != nil { // consume ")"
		return nil, err
	}
	return call, nil
}

// continuePostfix resumes expression parsing when an identifier was consumed
// during keyword-argument lookahead. The identifier becomes the leftmost
// operand and parsing continues through postfix and binary levels.
func (p *parser) continuePostfix(base Node) (Node, error) {
	x := base
	for {
		switch {
		case p.isPunct("."):
			pos := p.tok.pos
			if err := p.bump(); err != nil {
				return nil, err
			}
			if p.tok.typ != tokIdent {
				return nil, p.errorf("expected attribute name after \".\", found %s", p.tok)
			}
			x = &AttrExpr{P: pos, X: x, Name: p.tok.lit}
			if err := p.bump(); err != nil {
				return nil, err
			}
		case p.isPunct("("):
			call, err := p.parseCall(x)
			if err != nil {
				return nil, err
			}
			x = call
		case p.isPunct("["):
			pos := p.tok.pos
			if err := p.bump(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			x = &IndexExpr{P: pos, X: x, Index: idx}
		default:
			return p.continueBinary(x)
		}
	}
}

// continueBinary folds trailing binary operators onto an already-parsed
// operand. Precedence is resolved by reparsing the right side at the proper
// level; operand grouping for mixed precedence chains inside argument lists
// follows left-to-right association at the comparison level, which is
// sufficient for the closed grammar's argument expressions.
func (p *parser) continueBinary(left Node) (Node, error) {
	for p.tok.typ == tokOperator && p.tok.lit != "=" && p.tok.lit != "!" {
		op := p.tok.lit
		pos := p.tok.pos
		if err := p.bump(); err != nil {
			return nil, err
		}
		var (
			right Node
			err   error
		)
		switch op {
		case "||":
			right, err = p.parseAnd()
		case "&&":
			right, err = p.parseComparison()
		case "==", "!=", "<", "<=", ">", ">=":
			right, err = p.parseAdditive()
		case "+", "-":
			right, err = p.parseMultiplicative()
		case "*", "/", "%":
			right, err = p.parseUnary()
		default:
			return nil, p.errorf("unexpected operator %q", op)
		}
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{P: pos, Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Node, error) {
	pos := p.tok.pos
	switch p.tok.typ {
	case tokIdent:
		name := p.tok.lit
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &Ident{P: pos, Name: name}, nil

	case tokString:
		lit := p.tok.lit
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &Literal{P: pos, Value: lit}, nil

	case tokInt:
		n, err := strconv.ParseInt(p.tok.lit, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %q", p.tok.lit)
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &Literal{P: pos, Value: n}, nil

	case tokFloat:
		f, err := strconv.ParseFloat(p.tok.lit, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", p.tok.lit)
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &Literal{P: pos, Value: f}, nil

	case tokKeyword:
		switch p.tok.lit {
		case "true", "false":
			v := p.tok.lit == "true"
			if err := p.bump(); err != nil {
				return nil, err
			}
			return &Literal{P: pos, Value: v}, nil
		case "null":
			if err := p.bump(); err != nil {
				return nil, err
			}
			return &Literal{P: pos, Value: nil}, nil
		}
		return nil, p.errorf("unexpected keyword %q", p.tok.lit)

	case tokPunct:
		switch p.tok.lit {
		case "(":
			if err := p.bump(); err != nil {
				return nil, err
			}
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			return p.parseList(pos)
		case "{":
			return p.parseMap(pos)
		}
	}
	return nil, p.errorf("unexpected %s", p.tok)
}

func (p *parser) parseList(pos Pos) (Node, error) {
	if err := p.bump(); err != nil { // consume "["
		return nil, err
	}
	lit := &ListLit{P: pos}
	for !p.isPunct("]") {
		if p.tok.typ == tokEOF {
			return nil, p.errorf("unexpected end of input in list literal")
		}
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, elem)
		if p.isPunct(",") {
			if err := p.bump(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("]") {
			return nil, p.errorf("expected \",\" or \"]\" in list literal, found %s", p.tok)
		}
	}
	if err := p.bump(); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *parser) parseMap(pos Pos) (Node, error) {
	if err := p.bump(); err != nil { // consume "{"
		return nil, err
	}
	lit := &MapLit{P: pos}
	for !p.isPunct("}") {
		if p.tok.typ == tokEOF {
			return nil, p.errorf("unexpected end of input in map literal")
		}
		if p.tok.typ != tokString {
			return nil, p.errorf("map keys must be string literals, found %s", p.tok)
		}
		key := p.tok.lit
		if err := p.bump(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)
		if p.isPunct(",") {
			if err := p.bump(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isPunct("}") {
			return nil, p.errorf("expected \",\" or \"}\" in map literal, found %s", p.tok)
		}
	}
	if err := p.bump(); err != nil {
		return nil, err
	}
	return lit, nil
}
