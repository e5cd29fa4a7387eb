package flow

import "testing"

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("func add(a: int) -> int { // sum\n return a + 1.5; }")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []struct {
		value string
		typ   TokenType
	}{
		{"func", Ident}, {"add", Ident}, {"(", Punct}, {"a", Ident}, {":", Punct},
		{"int", Ident}, {")", Punct}, {"->", Punct}, {"int", Ident}, {"{", Punct},
		{"return", Ident}, {"a", Ident}, {"+", Punct}, {"1.5", Float}, {";", Punct},
		{"}", Punct}, {"", EOF},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, w := range want {
		if tokens[i].Value != w.value || tokens[i].Type != w.typ {
			t.Errorf("token %d = %q (%v), want %q (%v)", i, tokens[i].Value, tokens[i].Type, w.value, w.typ)
		}
	}
	if tokens[11].Line != 2 {
		t.Errorf("line of 'a' = %d, want 2", tokens[11].Line)
	}
}

func TestTokenize_String(t *testing.T) {
	tokens, err := Tokenize(`"Hello, \"x\"\n"`)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[0].Type != String || tokens[0].Value != "Hello, \"x\"\n" {
		t.Fatalf("token = %q (%v)", tokens[0].Value, tokens[0].Type)
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"bad character", "func @"},
		{"malformed number", "1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Tokenize(tt.input); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
