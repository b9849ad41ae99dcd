package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("CATALOG_TEST_TTL", "90")
	if got := Duration("CATALOG_TEST_TTL", time.Second); got != 90*time.Second {
		t.Fatalf("bare seconds: want=90s got=%v", got)
	}
	t.Setenv("CATALOG_TEST_TTL", "2m")
	if got := Duration("CATALOG_TEST_TTL", time.Second); got != 2*time.Minute {
		t.Fatalf("duration string: want=2m got=%v", got)
	}
	t.Setenv("CATALOG_TEST_TTL", "soon")
	if got := Duration("CATALOG_TEST_TTL", time.Second); got != time.Second {
		t.Fatalf("fallback: want=1s got=%v", got)
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("CATALOG_TEST_LIST", " a, ,b ")
	got := List("CATALOG_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("list: got=%v", got)
	}
	t.Setenv("CATALOG_TEST_BOOL", "off")
	if Bool("CATALOG_TEST_BOOL", true) {
		t.Fatalf("bool: want=false")
	}
}
