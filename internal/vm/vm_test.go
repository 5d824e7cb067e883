package vm

import (
	"bytes"
	"testing"

	"github.com/funvibe/lox/internal/config"
)

func newTestVM(t *testing.T, stress bool) (*VM, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	s := config.Defaults()
	s.GC.Stress = stress
	machine := New(s)
	var out, errOut bytes.Buffer
	machine.SetOutput(&out)
	machine.SetErrorOutput(&errOut)
	return machine, &out, &errOut
}

// runVM runs input normally and with a collection on every allocation, and
// requires both runs to succeed with the same output.
func runVM(t *testing.T, input string) string {
	t.Helper()

	var outputs [2]string
	for i, stress := range []bool{false, true} {
		machine, out, _ := newTestVM(t, stress)
		result, err := machine.Interpret(input)
		if err != nil {
			t.Fatalf("stress=%v: %s error: %v", stress, result, err)
		}
		outputs[i] = out.String()
	}
	if outputs[0] != outputs[1] {
		t.Fatalf("output differs under GC stress:\nnormal: %q\nstress: %q", outputs[0], outputs[1])
	}
	return outputs[0]
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"arithmetic",
			`print 1 + 2 * 3; print (1 + 2) * 3; print 10 / 4; print -3 - -3; print 7;`,
			"7\n9\n2.5\n0\n7\n",
		},
		{
			"comparison and equality",
			`print 1 < 2; print 2 <= 2; print 3 > 4; print 3 >= 4;
			 print 1 == 1; print "a" == "a"; print nil == false; print 1 != 2;`,
			"true\ntrue\nfalse\nfalse\ntrue\ntrue\nfalse\ntrue\n",
		},
		{
			"truthiness",
			`print !nil; print !0; print !""; print !!true;`,
			"true\nfalse\nfalse\ntrue\n",
		},
		{
			"string concatenation",
			`var a = "foo"; var b = "bar"; print a + b; print a + b == "foobar";`,
			"foobar\ntrue\n",
		},
		{
			"logical operators return operands",
			`print nil or "x"; print 1 and 2; print false and 1; print nil or false;`,
			"x\n2\nfalse\nfalse\n",
		},
		{
			"block scoping and shadowing",
			`var a = "global";
			 { var a = "outer"; { var a = "inner"; print a; } print a; }
			 print a;`,
			"inner\nouter\nglobal\n",
		},
		{
			"loops",
			`var s = 0;
			 for (var i = 0; i < 5; i = i + 1) s = s + i;
			 print s;
			 var n = 3;
			 while (n > 0) { print n; n = n - 1; }`,
			"10\n3\n2\n1\n",
		},
		{
			"for without clauses",
			`fun f() { var i = 0; for (;;) { i = i + 1; if (i == 3) return i; } }
			 print f();
			 var j = 0; for (; j < 2;) j = j + 1; print j;`,
			"3\n2\n",
		},
		{
			"if else",
			`if (1 > 2) print "a"; else print "b"; if (nil) print "c";`,
			"b\n",
		},
		{
			"recursion",
			`fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);`,
			"610\n",
		},
		{
			"closures keep independent state",
			`fun makeCounter() { var i = 0; fun count() { i = i + 1; return i; } return count; }
			 var c = makeCounter(); print c(); print c();
			 var d = makeCounter(); print d();`,
			"1\n2\n1\n",
		},
		{
			"closures share a captured variable",
			`var get; var set;
			 fun make() { var x = "before"; fun g() { return x; } fun s(v) { x = v; } get = g; set = s; }
			 make(); set("after"); print get();`,
			"after\n",
		},
		{
			"capture is by reference while open",
			`{ var a = 1; fun f() { print a; } a = 2; f(); }`,
			"2\n",
		},
		{
			"upvalue of upvalue",
			`fun outer() { var x = "x"; fun middle() { fun inner() { return x; } return inner; } return middle; }
			 print outer()()();`,
			"x\n",
		},
		{
			"classes with initializer",
			`class Point { init(x, y) { this.x = x; this.y = y; } sum() { return this.x + this.y; } }
			 var p = Point(1, 2); print p.sum(); p.x = 10; print p.sum(); print p; print Point;`,
			"3\n12\nPoint instance\nPoint\n",
		},
		{
			"bound method remembers receiver",
			`class A { init() { this.n = "a"; } name() { return this.n; } }
			 var m = A().name; print m();`,
			"a\n",
		},
		{
			"inheritance and super",
			`class A { greet() { return "A"; } who() { return "A.who"; } }
			 class B < A { greet() { return "B+" + super.greet(); } }
			 class C < B {}
			 var c = C(); print c.greet(); print c.who();
			 class D < A { get() { var f = super.greet; return f(); } }
			 print D().get();`,
			"B+A\nA.who\nA\n",
		},
		{
			"method lookup walks the superclass chain",
			`class A { m() { return "A"; } } class B < A {} class C < B {} class D < C {}
			 print D().m();`,
			"A\n",
		},
		{
			"field shadows method on invoke",
			`class A { f() { return "method"; } }
			 var a = A(); fun g() { return "field"; } a.f = g; print a.f();`,
			"field\n",
		},
		{
			"initializer returns this",
			`class A { init() { this.v = 1; return; } } var a = A(); print a.init().v;`,
			"1\n",
		},
		{
			"printing callables",
			`fun f() {} print f; print clock; class K { m() {} } print K().m;`,
			"<fn f>\n<native fn>\n<fn m>\n",
		},
		{
			"number formatting",
			`print 0.1 + 0.2; print 1000000; print 1/0; print -1/0; print 0/0 == 0/0; print -0; print 100000000000000000000000;`,
			"0.30000000000000004\n1000000\ninf\n-inf\nfalse\n-0\n1e+23\n",
		},
		{
			"clock is a number",
			`print clock() >= 0;`,
			"true\n",
		},
		{
			"assignment is right associative",
			`var a; var b; a = b = 3; print a; print b;`,
			"3\n3\n",
		},
		{
			"closed upvalues in loop bodies",
			`var fs1; var fs2;
			 for (var i = 0; i < 2; i = i + 1) { var j = i; fun f() { return j; } if (i == 0) fs1 = f; else fs2 = f; }
			 print fs1(); print fs2();`,
			"0\n1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runVM(t, tt.input)
			if got != tt.expected {
				t.Errorf("output mismatch\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	machine, out, _ := newTestVM(t, false)

	if _, err := machine.Interpret(`var greeting = "hi"; fun twice(s) { return s + s; }`); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := machine.Interpret(`print twice(greeting);`); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if out.String() != "hihi\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestInterpretREPLEchoesExpressions(t *testing.T) {
	machine, out, _ := newTestVM(t, false)

	lines := []string{
		`1 + 2;`,
		`var a = "x";`,
		`a;`,
		`{ 5; }`,
		`print "p";`,
	}
	for _, line := range lines {
		if result, err := machine.InterpretREPL(line); err != nil {
			t.Fatalf("%q: %s: %v", line, result, err)
		}
	}
	if out.String() != "3\nx\np\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestREPLFailureKeepsEarlierGlobals(t *testing.T) {
	machine, _, _ := newTestVM(t, false)

	result, err := machine.InterpretREPL(`var b = 2; print nope; var c = 3;`)
	if result != InterpretRuntimeError || err == nil {
		t.Fatalf("expected runtime error, got %s", result)
	}
	if v, ok := machine.GetGlobal("b"); !ok || v.AsNumber() != 2 {
		t.Errorf("b should survive the failed line, got %v %v", v, ok)
	}
	if _, ok := machine.GetGlobal("c"); ok {
		t.Error("c should not be defined")
	}

	// A compile error defines nothing.
	if result, _ := machine.InterpretREPL(`var d = 1; print ;`); result != InterpretCompileError {
		t.Fatalf("expected compile error, got %s", result)
	}
	if _, ok := machine.GetGlobal("d"); ok {
		t.Error("d should not be defined after a compile error")
	}
}

func TestHostGlobalsAndNatives(t *testing.T) {
	machine, out, _ := newTestVM(t, true)

	machine.SetGlobal("n", NumberVal(41))
	machine.SetGlobalString("who", "host")
	machine.DefineNative("double", 1, func(args []Value) (Value, error) {
		return NumberVal(args[0].AsNumber() * 2), nil
	})
	machine.DefineNative("shout", 1, func(args []Value) (Value, error) {
		return machine.NewString(args[0].String() + "!"), nil
	})

	if _, err := machine.Interpret(`print double(n + 1); print shout(who); var back = who + "?";`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "84\nhost!\n" {
		t.Errorf("got %q", out.String())
	}

	back, ok := machine.GetGlobal("back")
	if !ok || !back.IsString() || back.AsString().Chars != "host?" {
		t.Errorf("back = %v", back)
	}

	names := machine.GlobalNames()
	want := []string{"back", "clock", "double", "n", "shout", "who"}
	if len(names) != len(want) {
		t.Fatalf("GlobalNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("GlobalNames[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestStringsAreInterned(t *testing.T) {
	machine, _, _ := newTestVM(t, false)
	if _, err := machine.Interpret(`var a = "ab"; var b = "a" + "b";`); err != nil {
		t.Fatal(err)
	}
	a, _ := machine.GetGlobal("a")
	b, _ := machine.GetGlobal("b")
	if a.Obj != b.Obj {
		t.Error("equal strings should be the same object")
	}
}

func TestDebugSettingsDoNotChangeBehavior(t *testing.T) {
	s := config.Defaults()
	s.Debug.TraceExecution = true
	s.Debug.PrintCode = true
	machine := New(s)
	var out, errOut bytes.Buffer
	machine.SetOutput(&out)
	machine.SetErrorOutput(&errOut)

	src := `class A { m() { return "m"; } }
fun f(n) { var x = n; fun g() { return x; } return g; }
print A().m();
print f(1)();`
	if _, err := machine.Interpret(src); err != nil {
		t.Fatal(err)
	}
	if out.String() != "m\n1\n" {
		t.Errorf("got %q", out.String())
	}

	fn := machine.newFunction()
	fn.Chunk.WriteOp(OP_CONST, 1)
	if err := machine.execute(fn); err == nil {
		t.Error("expected invalid bytecode error with tracing on")
	}
}
