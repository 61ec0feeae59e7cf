package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Glob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"regionB.result.json", "regionA.result.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	fsys := OSFileSystem{}
	got, err := fsys.Glob(filepath.Join(dir, "region*.result.json"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{filepath.Join(dir, "regionA.result.json"), filepath.Join(dir, "regionB.result.json")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := fsys.Glob("[bad"); err == nil {
		t.Error("expected an error for a malformed pattern")
	}
}

func TestOSFileSystem_WriteCreateRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	fsys := OSFileSystem{}

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if !fsys.Exists(dir) {
		t.Fatal("expected directory to exist")
	}

	w, err := fsys.Create(filepath.Join(dir, "plot.svg"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("<svg/>")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := fsys.ReadFile(filepath.Join(dir, "plot.svg"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("expected <svg/>, got %q", data)
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	payload := []byte(`{"CLs_obs": 0.2}`)
	if err := mfs.WriteFile("/results/a.json", payload, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	payload[0] = 'X'

	data, err := mfs.ReadFile("/results/./a.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"CLs_obs": 0.2}` {
		t.Errorf("stored data changed with the caller's slice: %q", data)
	}

	_, err = mfs.ReadFile("/results/missing.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/page.html")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !mfs.Exists("/out/page.html") {
		t.Error("expected created file to exist before Close")
	}
	if _, err := w.Write([]byte("<html>")); err != nil {
		t.Fatal(err)
	}
	if data, _ := mfs.ReadFile("/out/page.html"); len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if data, _ := mfs.ReadFile("/out/page.html"); string(data) != "<html>" {
		t.Errorf("expected <html>, got %q", data)
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{
		"/results/regionA.result.sbottom_900_400_60.json",
		"/results/regionA.result.sbottom_700_400_60.json",
		"/results/regionB.result.sbottom_700_400_60.json",
		"/results/sub/regionA.result.sbottom_1_2_3.json",
	} {
		if err := mfs.WriteFile(name, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := mfs.Glob("/results/regionA.result.sbottom_*_*_*.json")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{
		"/results/regionA.result.sbottom_700_400_60.json",
		"/results/regionA.result.sbottom_900_400_60.json",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if _, err := mfs.Glob("[bad"); err == nil {
		t.Error("expected an error for a malformed pattern")
	}
}

func TestMemoryFileSystem_MkdirAllAndFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(d) {
			t.Errorf("expected %s to exist", d)
		}
	}

	_ = mfs.WriteFile("/a/b/x.json", nil, 0644)
	_ = mfs.WriteFile("/a/y.json", nil, 0644)
	_ = mfs.WriteFile("/ab/z.json", nil, 0644)

	got := mfs.Files("/a")
	if len(got) != 2 || got[0] != "/a/b/x.json" || got[1] != "/a/y.json" {
		t.Errorf("unexpected files under /a: %v", got)
	}
}
