package parser

import (
	"strconv"
	"strings"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/lexer"
	"github.com/roach88/mongosql/internal/sqlerr"
)

// Expression parsing climbs precedence levels from loosest to tightest:
//
//	OR < AND < comparison < + - < * / % < unary < postfix
//
// Comparison operators do not associate: `a = b = c` is a syntax error,
// not a chained comparison.

func (p *parser) parseExpression() (ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.OR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.AND) {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	switch tok.Kind {
	case lexer.EQ, lexer.NE, lexer.GT, lexer.LT, lexer.GE, lexer.LE:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: comparisonOp(tok.Kind), Left: left, Right: right}, nil

	case lexer.IN:
		p.advance()
		list, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: ast.OpIn, Left: left, Right: list}, nil

	case lexer.BETWEEN:
		p.advance()
		low, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if !p.match(lexer.AND) {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"expected AND in BETWEEN, found %s", p.describe(p.peek()))
		}
		high, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: ast.OpBetween, Left: left, Right: &ast.Range{Low: low, High: high}}, nil

	case lexer.LIKE:
		p.advance()
		patternTok := p.peek()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if _, ok := right.(*ast.String); !ok {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, patternTok.Pos,
				"LIKE pattern must be a string literal")
		}
		return &ast.Binary{Op: ast.OpLike, Left: left, Right: right}, nil

	case lexer.IS:
		p.advance()
		negated := p.match(lexer.NOT)
		if !p.match(lexer.NULL) {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"expected NULL after IS, found %s", p.describe(p.peek()))
		}
		return &ast.IsNull{Operand: left, Negated: negated}, nil
	}
	return left, nil
}

func comparisonOp(kind lexer.Kind) ast.BinaryOp {
	switch kind {
	case lexer.EQ:
		return ast.OpEq
	case lexer.NE:
		return ast.OpNe
	case lexer.GT:
		return ast.OpGt
	case lexer.LT:
		return ast.OpLt
	case lexer.GE:
		return ast.OpGe
	default:
		return ast.OpLe
	}
}

func (p *parser) parseInList() (*ast.List, error) {
	if !p.match(lexer.LPAREN) {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
			"expected '(' after IN, found %s", p.describe(p.peek()))
	}
	var items []ast.Expr
	for {
		item, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.match(lexer.COMMA) {
			continue
		}
		if !p.match(lexer.RPAREN) {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"expected ',' or ')' in IN list, found %s", p.describe(p.peek()))
		}
		return &ast.List{Items: items}, nil
	}
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case lexer.PLUS:
			op = ast.OpAdd
		case lexer.MINUS:
			op = ast.OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.peek().Kind {
		case lexer.STAR:
			op = ast.OpMul
		case lexer.SLASH:
			op = ast.OpDiv
		case lexer.PERCENT:
			op = ast.OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (ast.Expr, error) {
	switch p.peek().Kind {
	case lexer.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold -N into a literal so negative indexes and plain negative
		// numbers carry no wrapper node.
		if num, ok := operand.(*ast.Number); ok {
			return &ast.Number{Value: -num.Value}, nil
		}
		return &ast.Unary{Op: ast.OpNeg, Operand: operand}, nil
	case lexer.NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpNot, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfixChain(base)
}

// parsePostfixChain applies dot and bracket continuations to base.
//
// A dot after an array access extends the dotted path at the root of
// the chain: `items[0].name` reads the `name` of the first element,
// which the translator expresses by indexing into the `items.name`
// path array.
func (p *parser) parsePostfixChain(base ast.Expr) (ast.Expr, error) {
	for {
		switch p.peek().Kind {
		case lexer.DOT:
			p.advance()
			nameTok := p.peek()
			if nameTok.Kind != lexer.IDENT && !nameTok.IsKeyword() {
				return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, nameTok.Pos,
					"expected field name after '.', found %s", p.describe(nameTok))
			}
			root := rootFieldRef(base)
			if root == nil {
				return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, nameTok.Pos,
					"'.%s' must follow a field reference", nameTok.Lexeme)
			}
			p.advance()
			root.Path = append(root.Path, nameTok.Lexeme)

		case lexer.LBRACKET:
			openTok := p.peek()
			p.advance()
			next, err := p.parseBracketSuffix(base, openTok.Pos)
			if err != nil {
				return nil, err
			}
			base = next

		default:
			return base, nil
		}
	}
}

// rootFieldRef returns the FieldRef at the root of a field chain, or
// nil when the chain is rooted elsewhere.
func rootFieldRef(e ast.Expr) *ast.FieldRef {
	switch n := e.(type) {
	case *ast.FieldRef:
		return n
	case *ast.ArrayIndex:
		return rootFieldRef(n.Base)
	case *ast.ArraySlice:
		return rootFieldRef(n.Base)
	}
	return nil
}

// parseBracketSuffix parses the inside of `[...]` after the opening
// bracket was consumed. Index and slice bounds must be integer
// literals.
func (p *parser) parseBracketSuffix(base ast.Expr, openPos int) (ast.Expr, error) {
	if p.peek().Kind == lexer.RBRACKET {
		return nil, sqlerr.NewEmptyIndex(openPos)
	}

	// Leading colon: slice with omitted start, arr[:5].
	if p.match(lexer.COLON) {
		return p.parseSliceSuffix(base, nil, openPos)
	}

	first, err := p.parseBracketInteger()
	if err != nil {
		return nil, err
	}

	switch p.peek().Kind {
	case lexer.RBRACKET:
		p.advance()
		return &ast.ArrayIndex{Base: base, Index: first}, nil
	case lexer.COLON:
		p.advance()
		return p.parseSliceSuffix(base, &first, openPos)
	default:
		// A complete index followed by anything else means the bracket
		// was never closed, whether the rest of the statement continues
		// or the input ends.
		return nil, sqlerr.NewMissingClosingBracket(openPos)
	}
}

// parseSliceSuffix parses the remainder of a slice after the first
// colon: optional end bound, optional `:step`.
func (p *parser) parseSliceSuffix(base ast.Expr, start *int64, openPos int) (ast.Expr, error) {
	slice := &ast.ArraySlice{Base: base, Start: start}

	if p.peek().Kind == lexer.NUMBER || p.peek().Kind == lexer.MINUS {
		end, err := p.parseBracketInteger()
		if err != nil {
			return nil, err
		}
		slice.End = &end
	}

	if p.match(lexer.COLON) {
		stepTok := p.peek()
		if stepTok.Kind != lexer.NUMBER && stepTok.Kind != lexer.MINUS {
			return nil, sqlerr.NewAt(sqlerr.CodeInvalidSliceStep, stepTok.Pos,
				"slice step must be an integer literal, found %s", p.describe(stepTok))
		}
		step, err := p.parseBracketInteger()
		if err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, sqlerr.NewAt(sqlerr.CodeInvalidSliceStep, stepTok.Pos,
				"Array slice step cannot be zero.")
		}
		if step < 0 {
			return nil, sqlerr.NewAt(sqlerr.CodeInvalidSliceStep, stepTok.Pos,
				"slice step must be a positive integer, got %d", step)
		}
		slice.Step = &step
	}

	if !p.match(lexer.RBRACKET) {
		return nil, sqlerr.NewMissingClosingBracket(openPos)
	}
	return slice, nil
}

// parseBracketInteger parses an optionally negated integer literal
// inside brackets. A lone identifier reads as a mistyped index; a
// larger expression reads as an attempt at a computed index.
func (p *parser) parseBracketInteger() (int64, error) {
	negative := false
	tok := p.peek()
	if tok.Kind == lexer.MINUS {
		negative = true
		p.advance()
		tok = p.peek()
	}

	switch tok.Kind {
	case lexer.NUMBER:
		if strings.Contains(tok.Lexeme, ".") {
			return 0, sqlerr.NewInvalidIndexType(tok.Pos, tok.Lexeme)
		}
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return 0, sqlerr.NewInvalidIndexType(tok.Pos, tok.Lexeme)
		}
		p.advance()
		// A number directly followed by an operator is a computed index
		// (arr[1+i]), which the translator cannot express.
		if isArithmeticToken(p.peek().Kind) {
			return 0, sqlerr.New(sqlerr.CodeUnsupportedComputedIndex,
				"computed array indexes are not supported; use a literal integer")
		}
		if negative {
			n = -n
		}
		return n, nil

	case lexer.IDENT:
		// Bare identifier: arr[abc] is a type error. Identifier followed
		// by an operator: arr[x+1] is a computed index.
		if isArithmeticToken(p.peekAt(1).Kind) {
			return 0, sqlerr.New(sqlerr.CodeUnsupportedComputedIndex,
				"computed array indexes are not supported; use a literal integer")
		}
		return 0, sqlerr.NewInvalidIndexType(tok.Pos, tok.Lexeme)

	case lexer.EOF:
		return 0, sqlerr.NewMissingClosingBracket(tok.Pos)

	default:
		return 0, sqlerr.NewInvalidIndexType(tok.Pos, tok.Lexeme)
	}
}

func isArithmeticToken(kind lexer.Kind) bool {
	switch kind {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return true
	}
	return false
}
