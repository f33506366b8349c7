package parser

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/simonw/micro-javascript-sub000/lexer"
)

// ErrorType categorizes a SyntaxError for callers that want to branch on it
// without string-matching Message.
type ErrorType int

const (
	ErrorUnexpectedToken ErrorType = iota
	ErrorUnterminated
	ErrorMissingToken
	ErrorInvalidSyntax
)

// SyntaxError is the parser's failure mode, enriched with a
// bracket-mismatch pointer back to where the unclosed bracket was opened,
// plus "did you mean" suggestions for near-miss keywords.
type SyntaxError struct {
	Type        ErrorType
	Message     string
	Token       lexer.Token
	OpenedAt    *lexer.Token
	Suggestions []string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("SyntaxError: %s (%d:%d)", e.Message, e.Token.Line, e.Token.Column)
	if e.OpenedAt != nil {
		msg += fmt.Sprintf(" (opened at %d:%d)", e.OpenedAt.Line, e.OpenedAt.Column)
	}
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %v?)", e.Suggestions)
	}
	return msg
}

// knownKeywords backs suggestKeyword's fuzzy match — an unrecognized
// identifier in statement position is compared against this list.
var knownKeywords = []string{
	"var", "function", "return", "if", "else", "while", "do", "for", "in", "of",
	"break", "continue", "switch", "case", "default", "try", "catch", "finally",
	"throw", "new", "delete", "typeof", "instanceof", "this", "true", "false",
	"null", "void",
}

// suggestKeyword returns up to 3 keywords close enough to typo to be worth
// surfacing: those within Levenshtein distance 2 of word (and closer than
// word's own length), nearest first.
func suggestKeyword(word string) []string {
	var ranks fuzzy.Ranks
	for _, kw := range knownKeywords {
		if d := fuzzy.LevenshteinDistance(word, kw); d <= 2 && d < len(word) {
			ranks = append(ranks, fuzzy.Rank{Source: word, Target: kw, Distance: d})
		}
	}
	if len(ranks) == 0 {
		return nil
	}
	sort.Sort(ranks)
	n := len(ranks)
	if n > 3 {
		n = 3
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = ranks[i].Target
	}
	return out
}

// BracketTracker tracks opening brackets so an unterminated-group/unterminated-block
// error can say where the bracket that's still open came from.
type BracketTracker struct {
	stack []bracketInfo
}

type bracketInfo struct {
	Type  lexer.TokenType
	Token lexer.Token
}

func (bt *BracketTracker) Push(tt lexer.TokenType, tok lexer.Token) {
	bt.stack = append(bt.stack, bracketInfo{Type: tt, Token: tok})
}

func (bt *BracketTracker) Pop(expected lexer.TokenType, closing lexer.Token) *SyntaxError {
	if len(bt.stack) == 0 {
		return &SyntaxError{Type: ErrorUnexpectedToken,
			Message: fmt.Sprintf("unexpected %q, no matching opening bracket", closing.Str),
			Token: closing}
	}
	top := bt.stack[len(bt.stack)-1]
	bt.stack = bt.stack[:len(bt.stack)-1]
	if !isMatchingBracket(top.Type, expected) {
		openTok := top.Token
		return &SyntaxError{Type: ErrorUnexpectedToken,
			Message: fmt.Sprintf("mismatched brackets: %q opened but %q found", top.Token.Str, closing.Str),
			Token: closing,
			OpenedAt: &openTok}
	}
	return nil
}

func (bt *BracketTracker) GetUnclosedBrackets() []bracketInfo { return bt.stack }
func (bt *BracketTracker) IsEmpty() bool { return len(bt.stack) == 0 }

func isMatchingBracket(opening, closing lexer.TokenType) bool {
	switch opening {
	case lexer.LBRACE:
		return closing == lexer.RBRACE
	case lexer.LPAREN:
		return closing == lexer.RPAREN
	case lexer.LBRACKET:
		return closing == lexer.RBRACKET
	default:
		return false
	}
}
