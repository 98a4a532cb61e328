package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

func noTempLeft(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomic_CreatesAndReplaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "anime")

	if err := WriteFileAtomic(dir, "1.json", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomic(dir, "1.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "1.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `{"v":2}` {
		t.Fatalf("期望覆盖为新内容，实际 %q", string(b))
	}
	noTempLeft(t, dir, "1.json")
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error { return os.ErrPermission }
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(dir, "a.json", []byte("{}")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}
	noTempLeft(t, dir, "a.json")
	if _, err := os.Stat(filepath.Join(dir, "a.json")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件，Stat err=%v", err)
	}
}

func TestWriteFileAtomic_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.json"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	err := WriteFileAtomic(dir, "a.json", []byte("{}"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestRename_CrossDeviceEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	if !IsCrossDevice(err) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
}
