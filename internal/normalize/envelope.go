package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeItemList はアイテム一覧レスポンスをデコードする。
// バックエンドの契約は一貫しておらず、同じエンドポイントが
// エンベロープ形式（{"applications": [...]} や {"ads": [...]}）と
// 素の配列の両方を返すことがある。エンベロープを正とし、
// 素の配列は防御的フォールバックとして受理する。
// envelopeKeysにはリソースごとのエンベロープキーを優先順で渡す。
func DecodeItemList(body []byte, envelopeKeys []string) ([]WireItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	// 防御的フォールバック: 素の配列
	if trimmed[0] == '[' {
		var items []WireItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode item array: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode item envelope: %w", err)
	}

	for _, key := range envelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var items []WireItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode envelope key %q: %w", key, err)
		}
		return items, nil
	}

	return nil, fmt.Errorf("no known envelope key in response (want one of %v)", envelopeKeys)
}
