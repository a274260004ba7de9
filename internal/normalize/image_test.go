package normalize

import "testing"

func TestImageURL(t *testing.T) {
	const base = "https://bk-appstore.victor-door.com"

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "httpsスキーム付きURLはそのまま返す",
			raw:  "https://cdn.example.com/a.jpg",
			want: "https://cdn.example.com/a.jpg",
		},
		{
			name: "httpスキーム付きURLはそのまま返す",
			raw:  "http://cdn.example.com/a.jpg",
			want: "http://cdn.example.com/a.jpg",
		},
		{
			name: "相対パスはベースURLと連結する",
			raw:  "/uploads/a.jpg",
			want: base + "/uploads/a.jpg",
		},
		{
			name: "先頭のundefinedアーティファクトを除去して連結する",
			raw:  "undefined/uploads/a.jpg",
			want: base + "/uploads/a.jpg",
		},
		{
			name: "スラッシュなしのundefinedアーティファクトも除去する",
			raw:  "undefineduploads/a.jpg",
			want: base + "uploads/a.jpg",
		},
		{
			name: "空文字はベースURLのみになる",
			raw:  "",
			want: base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageURL(tt.raw, base); got != tt.want {
				t.Errorf("ImageURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestImageURL_SameInputSameOutput(t *testing.T) {
	// 同一入力に対して常に同一出力（描画面間でURLが揺れない）
	const base = "https://bk-appstore.victor-door.com"
	raw := "undefined/uploads/b.png"

	first := ImageURL(raw, base)
	second := ImageURL(raw, base)
	if first != second {
		t.Errorf("同一入力で出力が揺れた: %q vs %q", first, second)
	}
}
