package parser

import (
	"strconv"
	"strings"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/lexer"
	"github.com/roach88/mongosql/internal/sqlerr"
)

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if !p.match(lexer.RPAREN) {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"expected ')', found %s", p.describe(p.peek()))
		}
		return expr, nil

	case lexer.NUMBER:
		p.advance()
		value, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
				"invalid number '%s'", tok.Lexeme)
		}
		return &ast.Number{Value: value}, nil

	case lexer.STRING:
		p.advance()
		return &ast.String{Value: tok.Lexeme}, nil

	case lexer.TRUE:
		p.advance()
		return &ast.Bool{Value: true}, nil

	case lexer.FALSE:
		p.advance()
		return &ast.Bool{Value: false}, nil

	case lexer.NULL:
		p.advance()
		return &ast.Null{}, nil

	case lexer.DATE, lexer.TIMESTAMP:
		return p.parseDateKeyword(tok)

	case lexer.CURRENT_TIMESTAMP, lexer.CURRENT_DATE:
		p.advance()
		p.matchEmptyParens()
		return &ast.CurrentTime{Kind: strings.ToUpper(tok.Lexeme)}, nil

	case lexer.NOW:
		p.advance()
		p.matchEmptyParens()
		return &ast.CurrentTime{Kind: "NOW"}, nil

	case lexer.IDENT:
		if p.peekAt(1).Kind == lexer.LPAREN {
			return p.parseCall(tok)
		}
		p.advance()
		return &ast.FieldRef{Path: []string{tok.Lexeme}}, nil
	}

	return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
		"unexpected %s in expression", p.describe(tok))
}

// parseDateKeyword handles the DATE and TIMESTAMP keywords. Both accept
// the typed-literal form (DATE '2024-01-15') and the call form
// (TIMESTAMP('2024-01-15T10:00:00Z')). A bare DATE or TIMESTAMP with
// neither is an ordinary field named "date"/"timestamp".
func (p *parser) parseDateKeyword(tok lexer.Token) (ast.Expr, error) {
	next := p.peekAt(1)
	switch next.Kind {
	case lexer.STRING:
		p.advance()
		p.advance()
		return ParseDateLiteral(next.Lexeme)
	case lexer.LPAREN:
		p.advance()
		p.advance()
		arg := p.peek()
		if arg.Kind != lexer.STRING {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, arg.Pos,
				"%s() takes a string literal, found %s",
				strings.ToUpper(tok.Lexeme), p.describe(arg))
		}
		p.advance()
		if !p.match(lexer.RPAREN) {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"expected ')', found %s", p.describe(p.peek()))
		}
		return ParseDateLiteral(arg.Lexeme)
	default:
		p.advance()
		return &ast.FieldRef{Path: []string{tok.Lexeme}}, nil
	}
}

// matchEmptyParens consumes an optional `()` pair.
func (p *parser) matchEmptyParens() {
	if p.peek().Kind == lexer.LPAREN && p.peekAt(1).Kind == lexer.RPAREN {
		p.advance()
		p.advance()
	}
}

var aggregateKinds = map[string]ast.AggregateKind{
	"COUNT": ast.AggCount,
	"SUM":   ast.AggSum,
	"AVG":   ast.AggAvg,
	"MIN":   ast.AggMin,
	"MAX":   ast.AggMax,
}

// mathFunctions maps accepted call names to their canonical form and
// argument arity range.
var mathFunctions = map[string]struct {
	canonical        string
	minArgs, maxArgs int
}{
	"ROUND":    {"ROUND", 1, 2},
	"TRUNC":    {"TRUNC", 1, 2},
	"TRUNCATE": {"TRUNC", 1, 2},
	"ABS":      {"ABS", 1, 1},
	"CEIL":     {"CEIL", 1, 1},
	"CEILING":  {"CEIL", 1, 1},
	"FLOOR":    {"FLOOR", 1, 1},
}

// parseCall handles identifier-followed-by-paren: aggregates, math
// functions, and ISODate. Anything else is an unsupported function.
func (p *parser) parseCall(nameTok lexer.Token) (ast.Expr, error) {
	name := strings.ToUpper(nameTok.Lexeme)
	p.advance() // name
	p.advance() // '('

	if kind, ok := aggregateKinds[name]; ok {
		return p.parseAggregateArgs(kind, nameTok)
	}

	if name == "ISODATE" {
		arg := p.peek()
		if arg.Kind != lexer.STRING {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, arg.Pos,
				"ISODate() takes a string literal, found %s", p.describe(arg))
		}
		p.advance()
		if !p.match(lexer.RPAREN) {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"expected ')', found %s", p.describe(p.peek()))
		}
		return ParseDateLiteral(arg.Lexeme)
	}

	fn, ok := mathFunctions[name]
	if !ok {
		return nil, sqlerr.NewAt(sqlerr.CodeUnsupportedFunction, nameTok.Pos,
			"unsupported function '%s'", nameTok.Lexeme)
	}

	var args []ast.Expr
	if p.peek().Kind != lexer.RPAREN {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if !p.match(lexer.RPAREN) {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
			"expected ')', found %s", p.describe(p.peek()))
	}
	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, nameTok.Pos,
			"%s takes %d to %d argument(s), got %d", fn.canonical, fn.minArgs, fn.maxArgs, len(args))
	}
	return &ast.Call{Name: fn.canonical, Args: args}, nil
}

// parseAggregateArgs parses the inside of an aggregate call after the
// opening paren.
func (p *parser) parseAggregateArgs(kind ast.AggregateKind, nameTok lexer.Token) (ast.Expr, error) {
	agg := &ast.Aggregate{Kind: kind}

	if p.match(lexer.DISTINCT) {
		agg.Distinct = true
	}

	if p.peek().Kind == lexer.STAR {
		if kind != ast.AggCount {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"%s(*) is not valid; only COUNT accepts '*'", kind)
		}
		if agg.Distinct {
			return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
				"COUNT(DISTINCT *) is not valid; DISTINCT needs a field")
		}
		p.advance()
	} else {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		agg.Arg = arg
	}

	if !p.match(lexer.RPAREN) {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
			"expected ')' to close %s(, found %s", nameTok.Lexeme, p.describe(p.peek()))
	}
	return agg, nil
}
