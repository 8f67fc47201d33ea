package script

import "testing"

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"keyword", `(box :size 2)`, `(box "__kw_size" 2)`},
		{"several keywords", `(cylinder :radius 1 :height 2)`, `(cylinder "__kw_radius" 1 "__kw_height" 2)`},
		{"keyword in string", `"a :keyword inside"`, `"a :keyword inside"`},
		{"escaped quote in string", `"say \":x\"" :y`, `"say \":x\"" "__kw_y"`},
		{"backtick string", "`raw :x`", "`raw :x`"},
		{"assignment", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case builtin", `(end-batch)`, `(end_batch)`},
		{"kebab-case keyword kept", `:head-dia`, `"__kw_head-dia"`},
		{"minus operator", `(- 10 5)`, `(- 10 5)`},
		{"negative number", `(move 1 -2 0 0)`, `(move 1 -2 0 0)`},
		{"double semicolon comment", `;; note :x`, `// note :x`},
		{"comment then code", "; note\n(undo)", "// note\n(undo)"},
		{"unterminated string", `"open`, `"open`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocess(tt.input); got != tt.expect {
				t.Errorf("preprocess(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}
