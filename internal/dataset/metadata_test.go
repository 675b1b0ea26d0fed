package dataset

import "testing"

func TestStagingRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	meta := map[string]string{"b": "second", "a": "first"}
	if err := SaveStaging(dir, meta); err != nil {
		t.Fatalf("SaveStaging: %v", err)
	}
	got, err := LoadStaging(dir)
	if err != nil {
		t.Fatalf("LoadStaging: %v", err)
	}
	if got["a"] != "first" || got["b"] != "second" {
		t.Errorf("got %v, want %v", got, meta)
	}
}

func TestLoadStagingMissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	got, err := LoadStaging(t.TempDir())
	if err != nil {
		t.Fatalf("LoadStaging: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestRenderInfoDictSortsKeys(t *testing.T) {
	t.Parallel()

	got := RenderInfoDict(map[string]string{"z": "1", "a": "2"})
	wantOrder := []byte("\"a\"")
	aIdx := indexOf(got, string(wantOrder))
	zIdx := indexOf(got, "\"z\"")
	if aIdx < 0 || zIdx < 0 || aIdx > zIdx {
		t.Errorf("expected sorted keys in output, got %s", got)
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
