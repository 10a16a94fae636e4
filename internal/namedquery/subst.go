package namedquery

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bareParamRE = regexp.MustCompile(`\$(\d+)`)
	variadicRE  = regexp.MustCompile(`\$[*@]`)

	// One pattern for every placeholder form, so Substitute can expand
	// the template in a single scan. Quoted '$N' must come first or the
	// bare form would claim its digits.
	placeholderRE = regexp.MustCompile(`'\$\d+'|\$\d+|\$[*@]`)
)

// ParamCount returns the arity of a template: the highest $N
// placeholder it mentions, or zero when it takes no arguments.
func ParamCount(text string) int {
	max := 0
	for _, m := range bareParamRE.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max
}

// usesVariadic reports whether the template takes all arguments at
// once via $* or $@.
func usesVariadic(text string) bool {
	return variadicRE.MatchString(text)
}

// Substitute expands placeholders in a template:
//
//   - '$N' (already quoted in the template) takes the argument verbatim
//     inside the existing quotes.
//   - Bare $N inserts numbers as-is and quotes everything else, so
//     templates read naturally for both kinds of argument.
//   - $* inserts all arguments comma-separated with the bare-$N rule;
//     $@ inserts all arguments comma-separated, always quoted.
//
// Out-of-range placeholders are left untouched; arity checking happens
// before substitution.
//
// Substitution is purely positional: the template is scanned exactly
// once, so placeholder-shaped text inside an argument is inserted
// literally, never expanded again.
func Substitute(text string, args []string) string {
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		switch {
		case strings.HasPrefix(m, "'"):
			n, _ := strconv.Atoi(m[2 : len(m)-1])
			if n < 1 || n > len(args) {
				return m
			}
			return "'" + escapeQuotes(args[n-1]) + "'"

		case m == "$*":
			formatted := make([]string, len(args))
			for i, arg := range args {
				formatted[i] = formatArg(arg)
			}
			return strings.Join(formatted, ", ")

		case m == "$@":
			quoted := make([]string, len(args))
			for i, arg := range args {
				quoted[i] = "'" + escapeQuotes(arg) + "'"
			}
			return strings.Join(quoted, ", ")

		default:
			n, _ := strconv.Atoi(m[1:])
			if n < 1 || n > len(args) {
				return m
			}
			return formatArg(args[n-1])
		}
	})
}

// formatArg inserts numeric arguments raw and quotes the rest.
func formatArg(arg string) string {
	if _, err := strconv.ParseFloat(arg, 64); err == nil {
		return arg
	}
	return "'" + escapeQuotes(arg) + "'"
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
