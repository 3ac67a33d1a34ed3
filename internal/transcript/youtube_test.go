package transcript

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc123", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ?feature=share", "dQw4w9WgXcQ"},
	}

	for _, tc := range cases {
		got, err := ExtractVideoID(tc.url)
		if err != nil {
			t.Errorf("ExtractVideoID(%q) error: %v", tc.url, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestExtractVideoIDRejectsUnknownURLs(t *testing.T) {
	for _, bad := range []string{
		"",
		"https://example.com/watch?v=abc",
		"https://www.youtube.com/watch",
		"not a url",
	} {
		if id, err := ExtractVideoID(bad); err == nil {
			t.Errorf("ExtractVideoID(%q) = %q, want error", bad, id)
		}
	}
}
