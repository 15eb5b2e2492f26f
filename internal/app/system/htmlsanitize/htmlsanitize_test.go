package htmlsanitize_test

import (
	"html/template"
	"strings"
	"testing"

	"github.com/dalemusser/copilotbilling/internal/app/system/htmlsanitize"
)

func TestSanitize_Empty(t *testing.T) {
	if result := htmlsanitize.Sanitize(""); result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestSanitize_PlainText(t *testing.T) {
	result := htmlsanitize.Sanitize("Paid via wire transfer")
	if result != "Paid via wire transfer" {
		t.Errorf("expected plain text unchanged, got %q", result)
	}
}

func TestSanitize_SafeHTML(t *testing.T) {
	input := "<p><strong>Invoice</strong> sent to <em>finance</em></p>"
	if result := htmlsanitize.Sanitize(input); result != input {
		t.Errorf("expected safe HTML preserved, got %q", result)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	input := "<p>Hello</p><script>alert('xss')</script>"
	if result := htmlsanitize.Sanitize(input); result != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", result)
	}
}

func TestSanitize_RemovesOnclick(t *testing.T) {
	input := `<button onclick="alert('xss')">Click</button>`
	if result := htmlsanitize.Sanitize(input); strings.Contains(result, "onclick") {
		t.Errorf("expected onclick attribute to be removed, got %q", result)
	}
}

func TestSanitize_RemovesJavascriptHref(t *testing.T) {
	input := `<a href="javascript:alert('xss')">Click</a>`
	if result := htmlsanitize.Sanitize(input); strings.Contains(result, "javascript:") {
		t.Errorf("expected javascript: href to be removed, got %q", result)
	}
}

func TestSanitize_AllowsSafeLinks(t *testing.T) {
	input := `<a href="https://example.com/invoices/42">Invoice</a>`
	if result := htmlsanitize.Sanitize(input); !strings.Contains(result, "https://example.com/invoices/42") {
		t.Errorf("expected safe link preserved, got %q", result)
	}
}

func TestSanitize_AllowsLists(t *testing.T) {
	input := "<ul><li>Item 1</li><li>Item 2</li></ul>"
	if result := htmlsanitize.Sanitize(input); result != input {
		t.Errorf("expected list preserved, got %q", result)
	}
}

func TestSanitize_RemovesIframe(t *testing.T) {
	result := htmlsanitize.Sanitize(`<p>Content</p><iframe src="https://evil.com"></iframe>`)
	if strings.Contains(result, "iframe") {
		t.Error("expected iframe to be removed")
	}
	if !strings.Contains(result, "Content") {
		t.Error("expected safe content to be preserved")
	}
}

func TestSanitize_RemovesFormElements(t *testing.T) {
	result := htmlsanitize.Sanitize(`<form action="/submit"><input type="text" name="data"><button>Submit</button></form>`)
	if strings.Contains(result, "<form") || strings.Contains(result, "<input") {
		t.Error("expected form elements to be removed")
	}
}

func TestSanitizeToHTML_RemovesDangerousContent(t *testing.T) {
	result := htmlsanitize.SanitizeToHTML("<p>Hello</p><script>alert('xss')</script>")
	if result != template.HTML("<p>Hello</p>") {
		t.Errorf("expected script removed, got %q", result)
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Platform Engineering", "Platform Engineering"},
		{"  <b>Sales</b> ", "Sales"},
		{"<script>alert(1)</script>Ops", "Ops"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.Plain(tt.in); got != tt.want {
			t.Errorf("Plain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextToHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hello, World!", "<p>Hello, World!</p>"},
		{"Line 1\nLine 2\nLine 3", "<p>Line 1<br>Line 2<br>Line 3</p>"},
		{"A & B", "<p>A &amp; B</p>"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.PlainTextToHTML(tt.in); got != tt.want {
			t.Errorf("PlainTextToHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareForDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want template.HTML
	}{
		{"", ""},
		{"Paid in full", "<p>Paid in full</p>"},
		{"Line 1\nLine 2", "<p>Line 1<br>Line 2</p>"},
		{"<p>Hello</p>", "<p>Hello</p>"},
		{"<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
	}
	for _, tt := range tests {
		if got := htmlsanitize.PrepareForDisplay(tt.in); got != tt.want {
			t.Errorf("PrepareForDisplay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
