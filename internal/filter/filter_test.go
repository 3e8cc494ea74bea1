package filter

import (
	"errors"
	"reflect"
	"testing"
)

func rowEnv() MapEnv {
	return MapEnv{
		"subject":     String("fix crash in parser"),
		"author":      String("Alice"),
		"feature":     String("block-jobs"),
		"upstreaming": None(),
		"cherry":      Bool(true),
		"all_ok":      Bool(false),
		"all_equal":   Bool(false),
		"msg_issues":  List([]string{"ABC-12", "ABC-100"}),
		"issues":      List(nil),
		"up":          String("abc1234"),
		"new":         None(),
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{`feature == "block-jobs"`, true},
		{`feature != 'block-jobs'`, false},
		{`cherry`, true},
		{`not all_ok`, true},
		{`all_ok or cherry`, true},
		{`all_ok and cherry`, false},
		{`"ABC-12" in msg_issues`, true},
		{`"ABC-1" in msg_issues`, false},
		{`"ABC-1" not in msg_issues`, true},
		{`"crash" in subject`, true},
		{`new == none`, true},
		{`up == None`, false},
		{`issues`, false},
		{`not (cherry and author == "Bob")`, true},
		{`author in ["Alice", "Bob"]`, true},
		{`upstreaming`, false},
		{`not not cherry`, true},
		{`cherry == true and all_equal == False`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.expr, err)
			}
			got, err := expr.Match(rowEnv())
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	expr, err := Parse("   ")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ok, err := expr.Match(MapEnv{})
	if err != nil || !ok {
		t.Errorf("empty filter must match everything, got %v, %v", ok, err)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	for _, src := range []string{
		`feature ==`,
		`(cherry`,
		`"unterminated`,
		`a = b`,
		`cherry cherry`,
		`and`,
		`[ "a" "b" ]`,
		`__import__("os") ; x`,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("expected SyntaxError, got %v", err)
			}
		})
	}
}

func TestMatch_UnknownAttribute(t *testing.T) {
	expr, err := Parse(`cherry and password == "x"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = expr.Match(rowEnv())
	var ua *UnknownAttributeError
	if !errors.As(err, &ua) || ua.Name != "password" {
		t.Errorf("expected unknown attribute error, got %v", err)
	}
}

func TestMatch_ShortCircuit(t *testing.T) {
	expr, err := Parse(`cherry or missing`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ok, err := expr.Match(rowEnv()); err != nil || !ok {
		t.Errorf("expected short-circuit to skip unknown attribute, got %v, %v", ok, err)
	}
}

func TestMatch_InTypeError(t *testing.T) {
	expr, _ := Parse(`cherry in msg_issues`)
	if _, err := expr.Match(rowEnv()); err == nil {
		t.Error("expected type error for bool in list")
	}
}

func TestAttributes(t *testing.T) {
	expr, err := Parse(`feature == "x" or (up != none and feature in msg_issues)`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"feature", "up", "msg_issues"}
	if got := expr.Attributes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Attributes() = %v, want %v", got, want)
	}
}
