package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileKeepsMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cmvn_opts")
	dst := filepath.Join(dir, "exp", "cmvn_opts")

	if err := os.WriteFile(src, []byte("--norm-means=false"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "--norm-means=false" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestCopyIfExists(t *testing.T) {
	dir := t.TempDir()
	copied, err := CopyIfExists(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	if err != nil || copied {
		t.Fatalf("CopyIfExists(missing) = %v, %v", copied, err)
	}

	src := filepath.Join(dir, "final.mat")
	if err := os.WriteFile(src, []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}
	copied, err = CopyIfExists(src, filepath.Join(dir, "out", "final.mat"))
	if err != nil || !copied {
		t.Fatalf("CopyIfExists = %v, %v", copied, err)
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3.mdl")
	if removed, err := RemoveIfExists(path); err != nil || removed {
		t.Fatalf("RemoveIfExists(missing) = %v, %v", removed, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if removed, err := RemoveIfExists(path); err != nil || !removed {
		t.Fatalf("RemoveIfExists = %v, %v", removed, err)
	}
}

func TestForceSymlinkReplaces(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "configs", "presoftmax_prior_scale.vec")
	if err := ForceSymlink("../old.vec", link); err != nil {
		t.Fatal(err)
	}
	if err := ForceSymlink("../presoftmax_prior_scale.vec", link); err != nil {
		t.Fatal(err)
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if target != "../presoftmax_prior_scale.vec" {
		t.Fatalf("target = %q", target)
	}
}
