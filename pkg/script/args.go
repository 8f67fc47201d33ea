package script

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// sexpVec3 carries a vector between builtins.
type sexpVec3 struct {
	v mgl64.Vec3
}

func (s *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", s.v[0], s.v[1], s.v[2])
}
func (s *sexpVec3) Type() *zygo.RegisteredType { return nil }

// args splits a builtin's arguments into positional values and :keyword
// pairs.
type args struct {
	fn         string
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(fn string, in []zygo.Sexp) args {
	a := args{fn: fn, kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(in); i++ {
		name, ok := keyword(in[i])
		if !ok {
			a.positional = append(a.positional, in[i])
			continue
		}
		if i+1 < len(in) {
			a.kw[name] = in[i+1]
			i++
		} else {
			a.kw[name] = zygo.SexpNull
		}
	}
	return a
}

func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func (a args) errorf(format string, v ...any) error {
	return fmt.Errorf("%s: %s", a.fn, fmt.Sprintf(format, v...))
}

// need checks the positional argument count lies in [least, most]; most < 0
// means unbounded.
func (a args) need(least, most int) error {
	n := len(a.positional)
	switch {
	case n < least && least == most:
		return a.errorf("expected %d arguments, got %d", least, n)
	case n < least:
		return a.errorf("expected at least %d arguments, got %d", least, n)
	case most >= 0 && n > most:
		return a.errorf("expected at most %d arguments, got %d", most, n)
	}
	return nil
}

func (a args) intAt(i int) (int, error) {
	n, err := toInt(a.positional[i])
	if err != nil {
		return 0, a.errorf("argument %d: %v", i+1, err)
	}
	return n, nil
}

func (a args) ints(from int) ([]int, error) {
	out := make([]int, 0, len(a.positional)-from)
	for i := from; i < len(a.positional); i++ {
		n, err := a.intAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (a args) floatAt(i int) (float64, error) {
	f, err := toFloat64(a.positional[i])
	if err != nil {
		return 0, a.errorf("argument %d: %v", i+1, err)
	}
	return f, nil
}

// vecFrom reads either one vec3 or three numbers starting at positional i.
func (a args) vecFrom(i int) (mgl64.Vec3, error) {
	rest := a.positional[i:]
	if len(rest) == 1 {
		v, err := toVec3(rest[0])
		if err != nil {
			return v, a.errorf("argument %d: %v", i+1, err)
		}
		return v, nil
	}
	if len(rest) != 3 {
		return mgl64.Vec3{}, a.errorf("expected a vec3 or three numbers")
	}
	var v mgl64.Vec3
	for k := range v {
		f, err := a.floatAt(i + k)
		if err != nil {
			return v, err
		}
		v[k] = f
	}
	return v, nil
}

func (a args) kwFloat(name string, def float64) (float64, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return 0, a.errorf("%s: %v", name, err)
	}
	return f, nil
}

func (a args) kwInt(name string, def int) (int, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	n, err := toInt(s)
	if err != nil {
		return 0, a.errorf("%s: %v", name, err)
	}
	return n, nil
}

func (a args) kwVec(name string, def mgl64.Vec3) (mgl64.Vec3, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	v, err := toVec3(s)
	if err != nil {
		return v, a.errorf("%s: %v", name, err)
	}
	return v, nil
}

// kwSize accepts a single number for a cube or a vec3.
func (a args) kwSize(name string, def mgl64.Vec3) (mgl64.Vec3, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	if f, err := toFloat64(s); err == nil {
		return mgl64.Vec3{f, f, f}, nil
	}
	return a.kwVec(name, def)
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %s", s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.v, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %s", s.SexpString(nil))
}

// toAxis reads :x, :y or :z.
func toAxis(s zygo.Sexp) (mgl64.Vec3, error) {
	name, ok := keyword(s)
	if !ok {
		if str, isStr := s.(*zygo.SexpStr); isStr {
			name = str.S
		}
	}
	switch name {
	case "x":
		return mgl64.Vec3{1, 0, 0}, nil
	case "y":
		return mgl64.Vec3{0, 1, 0}, nil
	case "z":
		return mgl64.Vec3{0, 0, 1}, nil
	}
	if v, err := toVec3(s); err == nil && v.Len() > 0 {
		return v.Normalize(), nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected axis :x, :y, :z or a vec3, got %s", s.SexpString(nil))
}

func intSexp(n int) zygo.Sexp       { return &zygo.SexpInt{Val: int64(n)} }
func boolSexp(b bool) zygo.Sexp     { return &zygo.SexpBool{Val: b} }
func stringSexp(s string) zygo.Sexp { return &zygo.SexpStr{S: s} }
