package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileTokenStore は認証トークンを単一ファイルへ永続化するTokenStore実装。
// トークン1件のみを保持するため、データベース等は使わずパーミッション0600の
// ファイルに保存する。
type FileTokenStore struct {
	path string
}

// NewFileTokenStore はFileTokenStoreの新しいインスタンスを生成する。
// pathが空の場合はユーザー設定ディレクトリ配下のデフォルトパスを使用する。
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		path = filepath.Join(configDir, "storefront", "token")
	}
	return &FileTokenStore{path: path}, nil
}

// Load は保存済みトークンを返す。ファイルが存在しない場合は空文字とnilを返す。
func (f *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save はトークンをパーミッション0600で保存する。
func (f *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear は保存済みトークンを消去する。ファイルが存在しない場合もエラーにしない。
func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
