package oatmeal

import (
	"bytes"
	"errors"
	"testing"
)

// TestMessageScenario1 matches the worked build in the protocol's concrete
// test vectors: start("DIS", 'R', "XY") then finish(), with no arguments.
func TestMessageScenario1(t *testing.T) {
	m := NewMessage(DefaultMaxMsgLen)
	m.Start("DIS", 'R', "XY")
	m.Finish()

	want := "<DISRXY>i_"
	if got := string(m.Frame()); got != want {
		t.Fatalf("Frame() = %q, want %q", got, want)
	}
	if !m.Valid() {
		t.Fatalf("built frame %q reports invalid", m.Frame())
	}
}

func TestMessageAccessors(t *testing.T) {
	m := NewMessage(DefaultMaxMsgLen)
	m.Start("LOG", 'F', "a1")
	AppendInt(m, 42)
	m.AppendString("hi")
	m.Finish()

	if got := m.Command(); got != "LOG" {
		t.Errorf("Command() = %q, want LOG", got)
	}
	if got := m.Flag(); got != 'F' {
		t.Errorf("Flag() = %q, want F", got)
	}
	if got := m.TokenString(); got != "a1" {
		t.Errorf("TokenString() = %q, want a1", got)
	}
	if got := string(m.Opcode()); got != "LOGF" {
		t.Errorf("Opcode() = %q, want LOGF", got)
	}
	if !m.IsCommand("LOG") {
		t.Errorf("IsCommand(LOG) = false, want true")
	}
	if !m.IsOpcode("LOGF") {
		t.Errorf("IsOpcode(LOGF) = false, want true")
	}
	if !m.Valid() {
		t.Fatalf("built frame %q reports invalid", m.Frame())
	}
}

func TestMessageSeparators(t *testing.T) {
	m := NewMessage(DefaultMaxMsgLen)
	m.Start("ARG", 'R', "00")
	AppendInt(m, 1)
	AppendInt(m, 2)
	m.AppendBool(true)
	m.Finish()

	wantArgs := "1,2,T"
	if got := string(m.Args()); got != wantArgs {
		t.Fatalf("Args() = %q, want %q", got, wantArgs)
	}
}

func TestMessageListAndDictNoExtraSeparator(t *testing.T) {
	m := NewMessage(DefaultMaxMsgLen)
	m.Start("ARG", 'R', "00")
	m.AppendListStart()
	AppendInt(m, 1)
	AppendInt(m, 2)
	m.AppendListEnd()
	m.AppendDictStart()
	AppendDictKeyValueInt(m, "a", 9)
	m.AppendDictEnd()
	m.Finish()

	wantArgs := "[1,2],{a=9}"
	if got := string(m.Args()); got != wantArgs {
		t.Fatalf("Args() = %q, want %q", got, wantArgs)
	}
}

func TestMessageAppendRollbackOnOverflow(t *testing.T) {
	// A tiny capacity leaves no room for a second argument; the failed
	// append must not leave a dangling separator behind.
	m := NewMessage(MinMsgLen + len(",1") + 1)
	m.Start("ARG", 'R', "00")
	if n := AppendInt(m, 1); n == 0 {
		t.Fatalf("first AppendInt unexpectedly failed")
	}
	before := append([]byte(nil), m.Frame()...)
	if n := AppendInt(m, 22222); n != 0 {
		t.Fatalf("AppendInt should have failed on overflow, appended %d bytes", n)
	}
	if !bytes.Equal(m.Frame(), before) {
		t.Fatalf("failed append mutated buffer: got %q, want %q", m.Frame(), before)
	}
}

func TestMessageStartPanicsWithSentinels(t *testing.T) {
	m := NewMessage(DefaultMaxMsgLen)

	func() {
		defer func() {
			r := recover()
			if err, ok := r.(error); !ok || !errors.Is(err, ErrBadCommandLen) {
				t.Fatalf("recover() = %v, want ErrBadCommandLen", r)
			}
		}()
		m.Start("TOOLONG", 'R', "aa")
	}()

	func() {
		defer func() {
			r := recover()
			if err, ok := r.(error); !ok || !errors.Is(err, ErrBadTokenLen) {
				t.Fatalf("recover() = %v, want ErrBadTokenLen", r)
			}
		}()
		m.Start("DIS", 'R', "toolong")
	}()
}

func TestMessageCopyFromView(t *testing.T) {
	src := NewMessage(DefaultMaxMsgLen)
	src.Start("DIS", 'R', "XY")
	src.Finish()

	dst := NewMessage(DefaultMaxMsgLen)
	dst.CopyFrom(src.AsView())
	if !bytes.Equal(dst.Frame(), src.Frame()) {
		t.Fatalf("CopyFrom produced %q, want %q", dst.Frame(), src.Frame())
	}
}

func TestViewValid(t *testing.T) {
	m := NewMessage(DefaultMaxMsgLen)
	m.Start("DIS", 'R', "XY")
	m.Finish()

	v := NewView(m.Frame())
	if !v.Valid(DefaultMaxMsgLen) {
		t.Fatalf("View over valid frame reports invalid")
	}

	corrupt := append([]byte(nil), m.Frame()...)
	corrupt[len(corrupt)-1] ^= 0xFF
	if NewView(corrupt).Valid(DefaultMaxMsgLen) {
		t.Fatalf("View over corrupted frame reports valid")
	}
}
