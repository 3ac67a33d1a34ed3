package transcript

import "testing"

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.500
Hello and welcome

00:00:02.500 --> 00:00:05.000
to <b>the</b> show
`

const sampleSRT = `1
00:00:00,000 --> 00:00:02,500
Hello and welcome

2
00:00:02,500 --> 00:00:05,000
to the show
`

const sampleTimedText = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0" dur="2.5">Hello and welcome</text>
  <text start="2.5" dur="2.5">to the &amp;quot;show&amp;quot;</text>
</transcript>`

func TestParseVTT(t *testing.T) {
	got := ParseVTT(sampleVTT)
	want := "Hello and welcome to the show"
	if got != want {
		t.Fatalf("ParseVTT = %q, want %q", got, want)
	}
}

func TestParseSRT(t *testing.T) {
	got := ParseSRT(sampleSRT)
	want := "Hello and welcome to the show"
	if got != want {
		t.Fatalf("ParseSRT = %q, want %q", got, want)
	}
}

func TestParseTimedText(t *testing.T) {
	got, err := ParseTimedText([]byte(sampleTimedText))
	if err != nil {
		t.Fatalf("ParseTimedText error: %v", err)
	}
	if got == "" || got[:17] != "Hello and welcome" {
		t.Fatalf("ParseTimedText = %q", got)
	}
}

func TestParseTimedTextEmpty(t *testing.T) {
	if _, err := ParseTimedText([]byte(`<transcript></transcript>`)); err == nil {
		t.Fatal("expected error for empty track")
	}
}

func TestParseCaptionPayloadFormatDetection(t *testing.T) {
	if got := ParseCaptionPayload("https://x/captions.vtt", sampleVTT); got != "Hello and welcome to the show" {
		t.Fatalf("vtt by suffix = %q", got)
	}
	if got := ParseCaptionPayload("https://x/captions.srt", sampleSRT); got != "Hello and welcome to the show" {
		t.Fatalf("srt by suffix = %q", got)
	}
	// Unknown URL but WEBVTT body sniffs as VTT.
	if got := ParseCaptionPayload("https://x/captions?id=7", sampleVTT); got != "Hello and welcome to the show" {
		t.Fatalf("vtt by sniff = %q", got)
	}
	if got := ParseCaptionPayload("https://x/plain", "  some   plain\ntext  "); got != "some plain text" {
		t.Fatalf("plain fallback = %q", got)
	}
}
