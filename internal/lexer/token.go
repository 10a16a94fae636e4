package lexer

// Kind classifies a token.
type Kind int

const (
	// Keywords (matched case-insensitively).
	SELECT Kind = iota
	FROM
	WHERE
	GROUP
	HAVING
	ORDER
	BY
	LIMIT
	OFFSET
	AND
	OR
	NOT
	AS
	IN
	BETWEEN
	IS
	LIKE
	DISTINCT
	ASC
	DESC
	TRUE
	FALSE
	NULL
	EXPLAIN
	DATE
	TIMESTAMP
	CURRENT_TIMESTAMP
	CURRENT_DATE
	NOW

	// Identifiers and literals. Identifiers are case-sensitive.
	IDENT
	NUMBER
	STRING

	// Operators.
	EQ  // =
	NE  // != or <>
	GT  // >
	LT  // <
	GE  // >=
	LE  // <=
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT

	// Punctuation.
	COMMA
	DOT
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	COLON
	SEMICOLON

	EOF
)

var kindNames = map[Kind]string{
	SELECT: "SELECT", FROM: "FROM", WHERE: "WHERE", GROUP: "GROUP",
	HAVING: "HAVING", ORDER: "ORDER", BY: "BY", LIMIT: "LIMIT",
	OFFSET: "OFFSET", AND: "AND", OR: "OR", NOT: "NOT", AS: "AS",
	IN: "IN", BETWEEN: "BETWEEN", IS: "IS", LIKE: "LIKE",
	DISTINCT: "DISTINCT", ASC: "ASC", DESC: "DESC", TRUE: "TRUE",
	FALSE: "FALSE", NULL: "NULL", EXPLAIN: "EXPLAIN", DATE: "DATE",
	TIMESTAMP: "TIMESTAMP", CURRENT_TIMESTAMP: "CURRENT_TIMESTAMP",
	CURRENT_DATE: "CURRENT_DATE", NOW: "NOW",
	IDENT: "identifier", NUMBER: "number", STRING: "string",
	EQ: "=", NE: "!=", GT: ">", LT: "<", GE: ">=", LE: "<=",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	COMMA: ",", DOT: ".", LPAREN: "(", RPAREN: ")",
	LBRACKET: "[", RBRACKET: "]", COLON: ":", SEMICOLON: ";",
	EOF: "end of input",
}

// String returns a printable name for the kind, used in error messages.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// keywords maps upper-cased lexemes to keyword kinds.
var keywords = map[string]Kind{
	"SELECT": SELECT, "FROM": FROM, "WHERE": WHERE, "GROUP": GROUP,
	"HAVING": HAVING, "ORDER": ORDER, "BY": BY, "LIMIT": LIMIT,
	"OFFSET": OFFSET, "AND": AND, "OR": OR, "NOT": NOT, "AS": AS,
	"IN": IN, "BETWEEN": BETWEEN, "IS": IS, "LIKE": LIKE,
	"DISTINCT": DISTINCT, "ASC": ASC, "DESC": DESC, "TRUE": TRUE,
	"FALSE": FALSE, "NULL": NULL, "EXPLAIN": EXPLAIN, "DATE": DATE,
	"TIMESTAMP": TIMESTAMP, "CURRENT_TIMESTAMP": CURRENT_TIMESTAMP,
	"CURRENT_DATE": CURRENT_DATE, "NOW": NOW,
}

// Token is a single lexical unit with its byte position in the
// (NFC-normalized) source text. Tokens are immutable once produced.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    int
}

// Is reports whether the token has the given kind.
func (t Token) Is(kind Kind) bool { return t.Kind == kind }

// IsKeyword reports whether the token is any SQL keyword.
func (t Token) IsKeyword() bool { return t.Kind <= NOW }
