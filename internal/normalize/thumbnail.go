package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// FirstImageSrc は説明文のHTMLから最初のimgタグのsrc属性を取り出す。
// imagesが空のアイテムのサムネイルフォールバックに使用する。
// imgタグが存在しない場合やHTMLが不正な場合は空文字を返す。
func FirstImageSrc(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOFを含め、これ以上読めなければ諦める
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "img" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "src" && attr.Val != "" {
					return attr.Val
				}
			}
		}
	}
}
