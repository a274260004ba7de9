package api

import (
	"bytes"
	"fmt"
	"mime/multipart"

	"github.com/victor/storefront/internal/model"
)

// buildMultipart はアイテム作成・更新用のmultipartペイロードを構築する。
// テキストフィールドは常に送信し、画像は新規ファイルのみ"images"パートとして
// 添付する。URL文字列の保存済み画像はサーバー側で保持されるため送信しない。
func buildMultipart(fields model.ItemFields, images []model.ImageInput) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("title", fields.Title); err != nil {
		return nil, "", fmt.Errorf("failed to write title field: %w", err)
	}
	if err := writer.WriteField("description", fields.Description); err != nil {
		return nil, "", fmt.Errorf("failed to write description field: %w", err)
	}
	if err := writer.WriteField("link", fields.Link); err != nil {
		return nil, "", fmt.Errorf("failed to write link field: %w", err)
	}

	for _, img := range images {
		if !img.IsFile() {
			continue
		}
		part, err := writer.CreateFormFile("images", img.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write image data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart payload: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
