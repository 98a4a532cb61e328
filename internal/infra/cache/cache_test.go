package cache

import (
	"errors"
	"os"
	"testing"

	"github.com/John-Robertt/alpresence/internal/domain"
)

func TestStore_ReadWriteResource(t *testing.T) {
	s := New(t.TempDir(), false)

	if _, ok, err := s.ReadResource(domain.KindAnime, "123"); err != nil || ok {
		t.Fatalf("空缓存应未命中：ok=%v err=%v", ok, err)
	}
	if err := s.WriteResource(domain.KindAnime, "123", []byte(`{"data":{}}`)); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, ok, err := s.ReadResource(domain.KindAnime, "123")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ok {
		t.Fatalf("期望命中缓存，但 ok=false")
	}
	if string(b) != `{"data":{}}` {
		t.Fatalf("内容不一致：%q", string(b))
	}

	path, err := s.ResourcePath(domain.KindAnime, "123")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("期望文件存在，但 Stat 失败：%v", err)
	}
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true)
	err := s.WriteResource(domain.KindUser, "42", []byte(`{}`))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际：%v", err)
	}
}

func TestStore_DisabledIsNoop(t *testing.T) {
	s := New("", false)
	if s.Enabled() {
		t.Fatalf("空 root 应视为禁用")
	}
	if err := s.WriteResource(domain.KindTeam, "1", []byte(`{}`)); err != nil {
		t.Fatalf("禁用时写入应静默成功：%v", err)
	}
	if _, ok, err := s.ReadResource(domain.KindTeam, "1"); ok || err != nil {
		t.Fatalf("禁用时读取应未命中：ok=%v err=%v", ok, err)
	}
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	s := New(t.TempDir(), false)
	for _, id := range []string{"../x", "a/b", "..", ""} {
		if _, err := s.ResourcePath(domain.KindAnime, id); err == nil {
			t.Fatalf("id=%q 期望错误，但得到 nil", id)
		}
	}
	for _, k := range []domain.Kind{"../etc", "", "manga"} {
		if _, err := s.ResourcePath(k, "1"); err == nil {
			t.Fatalf("kind=%q 期望错误，但得到 nil", k)
		}
	}
}
