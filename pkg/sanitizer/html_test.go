package sanitizer

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Intro to Databases", "Intro to Databases"},
		{"tags removed", "<b>Intro</b> to <i>Databases</i>", "Intro to Databases"},
		{"script removed", `<script>alert("x")</script>Databases`, "Databases"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripHTML(tc.input); got != tc.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeHTML(t *testing.T) {
	t.Run("keeps formatting", func(t *testing.T) {
		in := "<p>Week one covers <strong>joins</strong>:</p><ul><li>inner</li></ul>"
		if got := SanitizeHTML(in); got != in {
			t.Errorf("SanitizeHTML(%q) = %q, want unchanged", in, got)
		}
	})

	t.Run("strips scripts and handlers", func(t *testing.T) {
		in := `<p onclick="steal()">hi</p><script>steal()</script>`
		got := SanitizeHTML(in)
		if got != "<p>hi</p>" {
			t.Errorf("SanitizeHTML(%q) = %q, want %q", in, got, "<p>hi</p>")
		}
	})

	t.Run("strips javascript urls", func(t *testing.T) {
		in := `<a href="javascript:alert(1)">x</a>`
		got := SanitizeHTML(in)
		if got != `x` {
			t.Errorf("SanitizeHTML(%q) = %q, want link stripped", in, got)
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"syllabus.pdf", "syllabus.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\x\report.docx`, "report.docx"},
		{".htaccess", "htaccess"},
		{"week 1 (final).pdf", "week_1__final_.pdf"},
		{"notes..pdf", "notes.pdf"},
	}
	for _, tc := range tests {
		if got := SanitizeFilename(tc.input); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
