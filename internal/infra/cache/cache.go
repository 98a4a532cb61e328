package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/infra/fsx"
)

// Store 提供 <root>/resources/<kind>/<id>.json 下的元数据响应缓存。
//
// 约束：
// - 只存放 API 的原始 JSON（解码由 metadata 包负责）
// - ReadOnly=true 时只读（例如只想复用已有缓存、不想落盘）
// - Root 为空表示禁用：读总是未命中，写总是成功且无副作用
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	root = strings.TrimSpace(root)
	if root != "" {
		root = filepath.Clean(root)
	}
	return Store{Root: root, ReadOnly: readOnly}
}

// Enabled 报告缓存是否配置了根目录。
func (s Store) Enabled() bool { return s.Root != "" }

// ResourcePath 返回某个资源缓存文件的绝对路径。
func (s Store) ResourcePath(kind domain.Kind, id string) (string, error) {
	if !s.Enabled() {
		return "", errors.New("cache 未启用")
	}
	k, err := cleanKind(kind)
	if err != nil {
		return "", err
	}
	id, err = cleanID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "resources", k, id+".json"), nil
}

// ReadResource 读取缓存。返回值 ok 表示是否命中（未命中不算错误）。
func (s Store) ReadResource(kind domain.Kind, id string) ([]byte, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	path, err := s.ResourcePath(kind, id)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// WriteResource 覆盖写入缓存。
func (s Store) WriteResource(kind domain.Kind, id string, body []byte) error {
	if !s.Enabled() {
		return nil
	}
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.ResourcePath(kind, id)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), body)
}

// id 可能是数字，也可能是 slug 或用户名片段；只挡住路径穿越。
var idRE = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// cleanKind 只接受已知种类：目录名来自固定集合，不会出现路径分隔符。
func cleanKind(k domain.Kind) (string, error) {
	known, err := domain.ParseKind(strings.TrimSpace(string(k)))
	if err != nil {
		return "", err
	}
	return string(known), nil
}

func cleanID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("id 不能为空")
	}
	if !idRE.MatchString(id) || strings.Trim(id, ".") == "" {
		return "", fmt.Errorf("非法 id：%q", id)
	}
	return id, nil
}
