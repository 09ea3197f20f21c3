// Tests the lexer by verifying that a short PBR script program is
// tokenized into the expected sequence of lexemes. Exact line/column
// bookkeeping is exercised indirectly through the keyword-length table in
// token.go; this test checks token type and value only.

package frontend

import "testing"

func TestLexerTokenSequence(t *testing.T) {
	src := `<region="ntsc-u">
def add(a, b):
set c = a + b
return c
end
`
	type want struct {
		typ itemType
		val string
	}
	exp := []want{
		{'<', "<"},
		{REGION, "region"},
		{'=', "="},
		{STRING, "ntsc-u"},
		{'>', ">"},
		{DEF, "def"},
		{IDENTIFIER, "add"},
		{'(', "("},
		{IDENTIFIER, "a"},
		{',', ","},
		{IDENTIFIER, "b"},
		{')', ")"},
		{':', ":"},
		{SET, "set"},
		{IDENTIFIER, "c"},
		{'=', "="},
		{IDENTIFIER, "a"},
		{'+', "+"},
		{IDENTIFIER, "b"},
		{RETURN, "return"},
		{IDENTIFIER, "c"},
		{END, "end"},
	}

	l := newLexer(src, lexGlobal)
	go l.run()

	for i, w := range exp {
		tok := l.nextItem()
		if tok.typ == itemEOF {
			t.Fatalf("token %d: expected %q, got EOF early", i, w.val)
		}
		if tok.typ == itemError {
			t.Fatalf("token %d: lexer error: %s", i, tok.val)
		}
		if tok.typ != w.typ || tok.val != w.val {
			t.Errorf("token %d: expected {%d %q}, got {%d %q}", i, w.typ, w.val, tok.typ, tok.val)
		}
	}

	if tok := l.nextItem(); tok.typ != itemEOF {
		t.Errorf("expected EOF after %d tokens, got %q", len(exp), tok.String())
	}
}

func TestIsKeywordRejectsUnknown(t *testing.T) {
	if kw, _ := isKeyword("frobnicate"); kw {
		t.Error("expected \"frobnicate\" to not be a keyword")
	}
	if kw, typ := isKeyword("while"); !kw || typ != WHILE {
		t.Errorf("expected \"while\" to lex as WHILE, got kw=%v typ=%v", kw, typ)
	}
}
