package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		url    string
		domain string
		ok     bool
	}{
		{"https://news.example/", "news.example", true},
		{"http://Example.COM:8080/path?q=1", "example.com", true},
		{"https://sub.domain.example/a#b", "sub.domain.example", true},
		{"chrome://extensions", "", false},
		{"edge://settings", "", false},
		{"about:blank", "", false},
		{"file:///etc/hosts", "", false},
		{"chrome-extension://abcdef/popup.html", "", false},
		{"https://", "", false},
		{"", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			domain, ok := DomainOf(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.domain, domain)
		})
	}
}
