// Package archive 按内容寻址归档已接受的配置文件：同一份内容只保留一份，
// 哈希既是存档键也是加载历史与状态变量里的指纹。
package archive

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrCollision 同一哈希路径下已存在内容不同的文件
var ErrCollision = errors.New("sha256 collision detected")

// hashBufSize 分块读文件时的缓冲大小
const hashBufSize = 64 * 1024

// Entry 一次归档的结果
type Entry struct {
	Hash    string // 十六进制 sha256
	Path    string // 存档文件完整路径
	Created bool   // false 表示内容此前已归档
}

// Store 基于目录的内容寻址存档，路径形如 <dir>/<h[:2]>/<h[:6]>/<h>
type Store struct {
	dir string
}

// New 创建存档根目录（含父目录）并返回 Store
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir 存档根目录
func (s *Store) Dir() string {
	return s.dir
}

// Put 归档一份文件内容。重复内容直接复用已有存档；
// 哈希相同而内容不同时返回 ErrCollision
func (s *Store) Put(content []byte) (Entry, error) {
	hash := HashBytes(content)
	path := s.path(hash)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Entry{}, fmt.Errorf("failed to create archive subdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return Entry{}, fmt.Errorf("failed to create archive file: %w", err)
		}
		existing, rerr := os.ReadFile(path)
		if rerr != nil {
			return Entry{}, fmt.Errorf("failed to read existing archive file: %w", rerr)
		}
		if !bytes.Equal(existing, content) {
			return Entry{}, fmt.Errorf("%w: %s", ErrCollision, hash)
		}
		return Entry{Hash: hash, Path: path, Created: false}, nil
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return Entry{}, fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Entry{}, fmt.Errorf("failed to close archive file: %w", err)
	}
	return Entry{Hash: hash, Path: path, Created: true}, nil
}

// Read 按哈希取回归档内容
func (s *Store) Read(hash string) ([]byte, error) {
	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", hash, err)
	}
	return data, nil
}

func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash[:6], hash)
}

// HashBytes 计算内容的十六进制 sha256
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashFile 分块计算文件的十六进制 sha256，避免整读大文件
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
