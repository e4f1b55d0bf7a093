package security

import (
	"strings"
	"testing"
)

func TestSanitize_AllowsBasicFormatting(t *testing.T) {
	s := NewContentSanitizer()

	in := "<p>Rich <strong>chocolate</strong> with <em>hazelnut</em></p>"
	out := s.Sanitize(in)

	if out != in {
		t.Errorf("Sanitize(%q) = %q, want unchanged", in, out)
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<p>Tasty</p><script>alert("xss")</script>`)

	if strings.Contains(out, "script") || strings.Contains(out, "alert") {
		t.Errorf("script content should be removed, got %q", out)
	}
	if !strings.Contains(out, "<p>Tasty</p>") {
		t.Errorf("allowed content should survive, got %q", out)
	}
}

func TestSanitize_RemovesImgAndEventAttributes(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<p onclick="evil()">Sweet</p><img src="https://example.com/x.png">`)

	if strings.Contains(out, "onclick") {
		t.Errorf("event attributes should be removed, got %q", out)
	}
	if strings.Contains(out, "img") {
		t.Errorf("img should be removed from descriptions, got %q", out)
	}
}

func TestSanitize_LinksGetSafeAttributes(t *testing.T) {
	s := NewContentSanitizer()

	out := s.Sanitize(`<a href="https://example.com/recipe">recipe</a>`)

	if !strings.Contains(out, `target="_blank"`) {
		t.Errorf("links should get target=_blank, got %q", out)
	}
	if !strings.Contains(out, "noopener") || !strings.Contains(out, "noreferrer") {
		t.Errorf("links should get rel noopener noreferrer, got %q", out)
	}
}

func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if out := s.Sanitize(""); out != "" {
		t.Errorf("Sanitize(\"\") = %q, want \"\"", out)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	in := `<p>Soft <strong>ladoo</strong></p><script>x</script>`
	once := s.Sanitize(in)
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("Sanitize should be idempotent: first %q, second %q", once, twice)
	}
}
