package linkextract

import (
	"reflect"
	"testing"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single link",
			text: "Check this out: https://example.com/page",
			want: []string{"https://example.com/page"},
		},
		{
			name: "two distinct links",
			text: "Web: https://google.com and docs: http://example.org/doc.pdf",
			want: []string{"https://google.com", "http://example.org/doc.pdf"},
		},
		{
			name: "trailing punctuation stripped",
			text: "See https://example.com/page.",
			want: []string{"https://example.com/page"},
		},
		{
			name: "repeated link kept twice",
			text: "https://example.com then https://example.com",
			want: []string{"https://example.com", "https://example.com"},
		},
		{
			name: "no links",
			text: "plain text without anything",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "link with query string",
			text: "https://example.com/search?q=go&lang=en done",
			want: []string{"https://example.com/search?q=go&lang=en"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractURLs(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractURLs() = %v, want %v", got, tt.want)
			}
		})
	}
}
