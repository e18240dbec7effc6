package envutil

import (
	"testing"
	"time"
)

func TestParsers(t *testing.T) {
	t.Setenv("ENVUTIL_STR", "  value ")
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD_INT", "forty")
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	t.Setenv("ENVUTIL_BOOL", "Yes")
	t.Setenv("ENVUTIL_SECONDS", "-3")

	if got := String("ENVUTIL_STR", "d"); got != "value" {
		t.Fatalf("String: %q", got)
	}
	if got := String("ENVUTIL_MISSING", "d"); got != "d" {
		t.Fatalf("String default: %q", got)
	}
	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int: %d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: %d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: %v", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: want true")
	}
	if Bool("ENVUTIL_MISSING", false) {
		t.Fatalf("Bool default: want false")
	}
	if got := Seconds("ENVUTIL_SECONDS", time.Minute); got != time.Minute {
		t.Fatalf("Seconds non-positive fallback: %v", got)
	}
}
