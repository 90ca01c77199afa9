package imaging

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSortNatural(t *testing.T) {
	paths := []string{"page_2.png", "page_10.png", "page_1.png"}
	SortNatural(paths)

	want := []string{"page_1.png", "page_2.png", "page_10.png"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("SortNatural = %v, want %v", paths, want)
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"page_9.png", "page_10.png", true},
		{"page_10.png", "page_9.png", false},
		{"page_0999.png", "page_10000.png", true},
		{"page_1.png", "page_1.png", false},
		{"Page_1.png", "page_2.png", true}, // case-insensitive text chunks
		{"page", "page_1.png", true},       // prefix sorts first
		{"a10b2", "a10b10", true},          // multiple digit runs
	}
	for _, tt := range tests {
		if got := NaturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("NaturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestListPNGs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page_10.png", "page_2.png", "page_1.PNG", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListPNGs(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "page_1.PNG"),
		filepath.Join(dir, "page_2.png"),
		filepath.Join(dir, "page_10.png"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("ListPNGs = %v, want %v", files, want)
	}
}
