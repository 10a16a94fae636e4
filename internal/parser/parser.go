// Package parser turns SQL text into the AST defined in internal/ast.
//
// The statement parser is recursive descent over the fixed clause order
// SELECT, FROM, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET; the
// expression parser climbs operator precedence. Both reject bad input
// with typed errors instead of recovering — partial parses existed in
// earlier incarnations only to feed autocomplete, which this module
// does not do.
package parser

import (
	"strconv"
	"strings"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/lexer"
	"github.com/roach88/mongosql/internal/sqlerr"
)

type parser struct {
	tokens []lexer.Token
	pos    int
}

// IsSQLStatement reports whether input looks like a statement this
// parser owns (SELECT or EXPLAIN), as opposed to a native shell
// command.
func IsSQLStatement(input string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(input))
	return trimmed == "SELECT" || trimmed == "EXPLAIN" ||
		strings.HasPrefix(trimmed, "SELECT ") ||
		strings.HasPrefix(trimmed, "SELECT\t") ||
		strings.HasPrefix(trimmed, "SELECT\n") ||
		strings.HasPrefix(trimmed, "EXPLAIN ") ||
		strings.HasPrefix(trimmed, "EXPLAIN\t") ||
		strings.HasPrefix(trimmed, "EXPLAIN\n")
}

// ParseStatement parses a full SELECT statement, optionally wrapped in
// EXPLAIN, and validates it.
func ParseStatement(input string) (*ast.Statement, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}

	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if err := ast.Validate(stmt); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseSelect() (*ast.Statement, error) {
	stmt := &ast.Statement{}

	if p.match(lexer.EXPLAIN) {
		verbosity, err := p.parseExplainVerbosity()
		if err != nil {
			return nil, err
		}
		stmt.Explain = verbosity
	}

	if !p.match(lexer.SELECT) {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
			"expected SELECT, found %s", p.describe(p.peek()))
	}

	projections, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	stmt.Projections = projections

	if !p.match(lexer.FROM) {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
			"expected FROM, found %s", p.describe(p.peek()))
	}
	collection, err := p.parseCollectionName()
	if err != nil {
		return nil, err
	}
	stmt.Collection = collection

	// last tracks the most recently parsed clause so out-of-order errors
	// name a clause that is actually in the statement.
	last := "FROM"

	if p.match(lexer.WHERE) {
		filter, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Filter = filter
		last = "WHERE"
	}

	if _, ok := p.matchGroupBy(); ok {
		keys, err := p.parseGroupByList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = keys
		last = "GROUP BY"
	}
	if err := p.rejectOutOfOrder(last, lexer.WHERE); err != nil {
		return nil, err
	}

	if p.match(lexer.HAVING) {
		having, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Having = having
		last = "HAVING"
	}
	if err := p.rejectOutOfOrder(last, lexer.WHERE, lexer.GROUP); err != nil {
		return nil, err
	}

	if _, ok := p.matchOrderBy(); ok {
		keys, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = keys
		last = "ORDER BY"
	}
	if err := p.rejectOutOfOrder(last, lexer.WHERE, lexer.GROUP, lexer.HAVING); err != nil {
		return nil, err
	}

	if p.match(lexer.LIMIT) {
		n, err := p.parseCount("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
		last = "LIMIT"
	}
	if err := p.rejectOutOfOrder(last, lexer.WHERE, lexer.GROUP, lexer.HAVING, lexer.ORDER); err != nil {
		return nil, err
	}

	if p.match(lexer.OFFSET) {
		n, err := p.parseCount("OFFSET")
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
		last = "OFFSET"
	}
	if err := p.rejectOutOfOrder(last, lexer.WHERE, lexer.GROUP, lexer.HAVING, lexer.ORDER, lexer.LIMIT); err != nil {
		return nil, err
	}

	p.match(lexer.SEMICOLON)
	if !p.atEOF() {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, p.peek().Pos,
			"unexpected %s after end of statement", p.describe(p.peek()))
	}
	return stmt, nil
}

// parseExplainVerbosity consumes the optional verbosity word after
// EXPLAIN. Both a bare identifier and a quoted string are accepted.
func (p *parser) parseExplainVerbosity() (ast.Verbosity, error) {
	tok := p.peek()
	if tok.Kind != lexer.IDENT && tok.Kind != lexer.STRING {
		return ast.VerbosityQueryPlanner, nil
	}
	switch tok.Lexeme {
	case string(ast.VerbosityQueryPlanner):
		p.advance()
		return ast.VerbosityQueryPlanner, nil
	case string(ast.VerbosityExecutionStats):
		p.advance()
		return ast.VerbosityExecutionStats, nil
	case string(ast.VerbosityAllPlansExecution):
		p.advance()
		return ast.VerbosityAllPlansExecution, nil
	}
	if tok.Kind == lexer.STRING {
		return "", sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
			"invalid EXPLAIN verbosity '%s' (expected queryPlanner, executionStats or allPlansExecution)",
			tok.Lexeme)
	}
	// A bare identifier that is not a verbosity word is the start of
	// something else; EXPLAIN then defaults to queryPlanner and the word
	// is left for the SELECT parser, where it will fail with a clearer
	// message.
	return ast.VerbosityQueryPlanner, nil
}

func (p *parser) parseProjectionList() ([]ast.Projection, error) {
	if p.match(lexer.STAR) {
		return []ast.Projection{{Expr: &ast.Wildcard{}}}, nil
	}
	var out []ast.Projection
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		proj := ast.Projection{Expr: expr}
		if p.match(lexer.AS) {
			alias, err := p.parseAlias()
			if err != nil {
				return nil, err
			}
			proj.Alias = alias
		}
		out = append(out, proj)
		if !p.match(lexer.COMMA) {
			return out, nil
		}
	}
}

// parseAlias accepts a bare identifier or a quoted string after AS.
func (p *parser) parseAlias() (string, error) {
	tok := p.peek()
	if tok.Kind == lexer.IDENT || tok.Kind == lexer.STRING {
		p.advance()
		return tok.Lexeme, nil
	}
	return "", sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
		"expected alias after AS, found %s", p.describe(tok))
}

// parseCollectionName accepts a possibly dotted collection name
// (FROM analytics.events).
func (p *parser) parseCollectionName() (string, error) {
	tok := p.peek()
	if tok.Kind != lexer.IDENT {
		return "", sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
			"expected collection name, found %s", p.describe(tok))
	}
	p.advance()
	name := tok.Lexeme
	for p.match(lexer.DOT) {
		part := p.peek()
		if part.Kind != lexer.IDENT {
			return "", sqlerr.NewAt(sqlerr.CodeUnexpectedToken, part.Pos,
				"expected identifier after '.', found %s", p.describe(part))
		}
		p.advance()
		name += "." + part.Lexeme
	}
	return name, nil
}

// parseGroupByList parses GROUP BY keys as field chains. Array access
// is grammatically accepted here and rejected by validation so the user
// gets the dedicated error instead of a generic syntax failure.
func (p *parser) parseGroupByList() ([]ast.Expr, error) {
	var keys []ast.Expr
	for {
		key, err := p.parseFieldChain("GROUP BY")
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		if !p.match(lexer.COMMA) {
			return keys, nil
		}
	}
}

func (p *parser) parseOrderByList() ([]ast.OrderKey, error) {
	var keys []ast.OrderKey
	for {
		expr, err := p.parseFieldChain("ORDER BY")
		if err != nil {
			return nil, err
		}
		key := ast.OrderKey{Expr: expr}
		if p.match(lexer.DESC) {
			key.Desc = true
		} else {
			p.match(lexer.ASC)
		}
		keys = append(keys, key)
		if !p.match(lexer.COMMA) {
			return keys, nil
		}
	}
}

// parseFieldChain parses an identifier followed by dot/bracket
// continuations, as used by GROUP BY and ORDER BY.
func (p *parser) parseFieldChain(clause string) (ast.Expr, error) {
	tok := p.peek()
	if tok.Kind != lexer.IDENT {
		return nil, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
			"expected column name in %s, found %s", clause, p.describe(tok))
	}
	p.advance()
	return p.parsePostfixChain(&ast.FieldRef{Path: []string{tok.Lexeme}})
}

func (p *parser) parseCount(clause string) (int64, error) {
	tok := p.peek()
	if tok.Kind != lexer.NUMBER {
		return 0, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
			"expected number in %s clause, found %s", clause, p.describe(tok))
	}
	n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
	if err != nil || n < 0 {
		return 0, sqlerr.NewAt(sqlerr.CodeUnexpectedToken, tok.Pos,
			"%s must be a non-negative integer, got '%s'", clause, tok.Lexeme)
	}
	p.advance()
	return n, nil
}

// rejectOutOfOrder fails when one of the given clause keywords appears
// after the clause the parser just finished.
func (p *parser) rejectOutOfOrder(after string, earlier ...lexer.Kind) error {
	tok := p.peek()
	for _, kind := range earlier {
		if tok.Kind == kind {
			name := kind.String()
			if kind == lexer.GROUP {
				name = "GROUP BY"
			}
			if kind == lexer.ORDER {
				name = "ORDER BY"
			}
			return sqlerr.NewAt(sqlerr.CodeClauseOutOfOrder, tok.Pos,
				"%s clause must appear before %s", name, after)
		}
	}
	return nil
}

// matchGroupBy consumes GROUP BY as a pair of tokens.
func (p *parser) matchGroupBy() (lexer.Token, bool) {
	return p.matchKeywordPair(lexer.GROUP)
}

// matchOrderBy consumes ORDER BY as a pair of tokens.
func (p *parser) matchOrderBy() (lexer.Token, bool) {
	return p.matchKeywordPair(lexer.ORDER)
}

func (p *parser) matchKeywordPair(first lexer.Kind) (lexer.Token, bool) {
	tok := p.peek()
	if tok.Kind != first {
		return lexer.Token{}, false
	}
	next := p.peekAt(1)
	if next.Kind != lexer.BY {
		return lexer.Token{}, false
	}
	p.advance()
	p.advance()
	return tok, true
}

// Token cursor helpers.

func (p *parser) peek() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.tokens[len(p.tokens)-1] // EOF terminator
}

func (p *parser) peekAt(offset int) lexer.Token {
	if p.pos+offset < len(p.tokens) {
		return p.tokens[p.pos+offset]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind lexer.Kind) bool {
	if p.peek().Kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *parser) atEOF() bool { return p.peek().Kind == lexer.EOF }

// describe renders a token for error messages.
func (p *parser) describe(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.EOF:
		return "end of input"
	case lexer.IDENT, lexer.NUMBER:
		return "'" + tok.Lexeme + "'"
	case lexer.STRING:
		return "string '" + tok.Lexeme + "'"
	default:
		return "'" + tok.Kind.String() + "'"
	}
}
