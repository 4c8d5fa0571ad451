package docstore

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_RequiresDirectory(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") = nil error, want configuration error")
	}
}

func TestSaveReadRemove(t *testing.T) {
	m, err := New(filepath.Join(t.TempDir(), "documents"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rel, err := m.Save("doc-1", "handbook.PDF", []byte("raw bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rel != "doc-1.pdf" {
		t.Errorf("relPath = %q, want id plus lowercased extension", rel)
	}

	data, err := m.Read(rel)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "raw bytes" {
		t.Errorf("data = %q", data)
	}

	if err := m.Remove(rel); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := m.Read(rel); err == nil {
		t.Error("Read after Remove succeeded")
	}
	// Removing twice is fine.
	if err := m.Remove(rel); err != nil {
		t.Errorf("second Remove failed: %v", err)
	}
}

func TestRead_RejectsPathTraversal(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := m.Read("../secrets.json"); err == nil {
		t.Fatal("Read with .. succeeded, want rejection")
	}
}

func TestExtractText_PlainText(t *testing.T) {
	got, err := ExtractText("text/plain", "notes.txt", []byte("hello world"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_RejectsBinaryAsText(t *testing.T) {
	if _, err := ExtractText("application/octet-stream", "blob.bin", []byte{0xff, 0xfe, 0x00}); err == nil {
		t.Fatal("invalid UTF-8 accepted as text")
	}
}

func TestExtractText_HTML(t *testing.T) {
	src := `<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><h1>Travel Policy</h1><p>Book flights two weeks ahead.</p></body></html>`

	got, err := ExtractText("text/html", "policy.html", []byte(src))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if !strings.Contains(got, "Travel Policy") || !strings.Contains(got, "Book flights two weeks ahead.") {
		t.Errorf("got %q, want visible text", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color:red") {
		t.Errorf("got %q, script/style content must be stripped", got)
	}
}

func TestExtractText_HTMLByExtension(t *testing.T) {
	got, err := ExtractText("", "page.htm", []byte("<p>just text</p>"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if !strings.Contains(got, "just text") {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_InvalidPDF(t *testing.T) {
	if _, err := ExtractText("application/pdf", "broken.pdf", []byte("not a pdf")); err == nil {
		t.Fatal("invalid PDF accepted")
	}
}
