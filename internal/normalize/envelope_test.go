package normalize

import "testing"

func TestDecodeItemList_Envelope(t *testing.T) {
	body := []byte(`{"applications": [{"_id": "a1", "title": "App 1"}, {"_id": "a2", "title": "App 2"}]}`)

	items, err := DecodeItemList(body, []string{"applications"})
	if err != nil {
		t.Fatalf("DecodeItemList がエラーを返した: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("アイテム数 = %d, want 2", len(items))
	}
	if items[0].ID != "a1" {
		t.Errorf("items[0].ID = %q, want %q", items[0].ID, "a1")
	}
	if items[1].Title != "App 2" {
		t.Errorf("items[1].Title = %q, want %q", items[1].Title, "App 2")
	}
}

func TestDecodeItemList_BareArray(t *testing.T) {
	// 同じエンドポイントが素の配列を返すことがある（防御的フォールバック）
	body := []byte(`[{"_id": "b1", "title": "Blog 1"}]`)

	items, err := DecodeItemList(body, []string{"ads", "blogs"})
	if err != nil {
		t.Fatalf("DecodeItemList がエラーを返した: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("アイテム数 = %d, want 1", len(items))
	}
	if items[0].ID != "b1" {
		t.Errorf("items[0].ID = %q, want %q", items[0].ID, "b1")
	}
}

func TestDecodeItemList_BareArrayWithLeadingWhitespace(t *testing.T) {
	body := []byte("  \n\t[{\"_id\": \"b1\"}]")

	items, err := DecodeItemList(body, []string{"blogs"})
	if err != nil {
		t.Fatalf("先頭空白付きの配列を受理すべき: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("アイテム数 = %d, want 1", len(items))
	}
}

func TestDecodeItemList_EnvelopeKeyPriority(t *testing.T) {
	// 複数キーが存在する場合は優先順の先のキーが使われる
	body := []byte(`{"ads": [{"_id": "ad1"}], "blogs": [{"_id": "bl1"}, {"_id": "bl2"}]}`)

	items, err := DecodeItemList(body, []string{"ads", "blogs"})
	if err != nil {
		t.Fatalf("DecodeItemList がエラーを返した: %v", err)
	}

	if len(items) != 1 || items[0].ID != "ad1" {
		t.Errorf("優先キー ads の内容が使われるべき: got %+v", items)
	}
}

func TestDecodeItemList_UnknownEnvelopeKey(t *testing.T) {
	body := []byte(`{"unexpected": []}`)

	if _, err := DecodeItemList(body, []string{"applications"}); err == nil {
		t.Error("未知のエンベロープキーのみの場合はエラーを返すべき")
	}
}

func TestDecodeItemList_EmptyBody(t *testing.T) {
	if _, err := DecodeItemList([]byte("  "), []string{"applications"}); err == nil {
		t.Error("空ボディはエラーを返すべき")
	}
}

func TestDecodeItemList_MalformedJSON(t *testing.T) {
	if _, err := DecodeItemList([]byte(`{"applications": [`), []string{"applications"}); err == nil {
		t.Error("不正JSONはエラーを返すべき")
	}
}
