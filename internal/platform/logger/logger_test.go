package logger

import "testing"

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	got := sanitizeKVs([]interface{}{"redis_password", "hunter2", "seller_id", "s-1", "attribute_key", "brand"})
	if len(got) != 6 {
		t.Fatalf("len: want=6 got=%d", len(got))
	}
	if got[1] != "[REDACTED]" {
		t.Fatalf("password: want redacted got=%v", got[1])
	}
	hashed, _ := got[3].(string)
	if len(hashed) != len("hash:")+12 {
		t.Fatalf("seller_id: want hash got=%v", got[3])
	}
	if got[5] != "brand" {
		t.Fatalf("attribute_key: want=brand got=%v", got[5])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"k", "v", "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", got)
	}
}
