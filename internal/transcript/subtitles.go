package transcript

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	timestampRe = regexp.MustCompile(`^\d{2}:\d{2}`)
	vttHeaderRe = regexp.MustCompile(`^(Kind|Language|Style|Region|STYLE|REGION):`)
	cueIndexRe  = regexp.MustCompile(`^\d+$`)
	spaceRe     = regexp.MustCompile(`\s+`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
)

// ParseCaptionPayload parses a caption body based on its URL's format hint.
// Unknown formats get generic whitespace normalization.
func ParseCaptionPayload(capURL, content string) string {
	switch {
	case strings.HasSuffix(capURL, ".vtt") || strings.Contains(capURL, "format=vtt"):
		return ParseVTT(content)
	case strings.HasSuffix(capURL, ".srt") || strings.Contains(capURL, "format=srt"):
		return ParseSRT(content)
	default:
		if strings.HasPrefix(strings.TrimSpace(content), "WEBVTT") {
			return ParseVTT(content)
		}
		return spaceRe.ReplaceAllString(strings.TrimSpace(content), " ")
	}
}

// ParseVTT strips WebVTT headers, cue timings and tags, returning the
// joined cue text.
func ParseVTT(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "NOTE") ||
			vttHeaderRe.MatchString(line) ||
			timestampRe.MatchString(line) ||
			strings.Contains(line, "-->") {
			continue
		}
		lines = append(lines, tagRe.ReplaceAllString(line, ""))
	}
	return strings.Join(lines, " ")
}

// ParseSRT strips SRT cue indexes and timings, returning the joined cue text.
func ParseSRT(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			cueIndexRe.MatchString(line) ||
			timestampRe.MatchString(line) ||
			strings.Contains(line, "-->") {
			continue
		}
		lines = append(lines, tagRe.ReplaceAllString(line, ""))
	}
	return strings.Join(lines, " ")
}

type timedTextDoc struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Body string `xml:",chardata"`
}

// ParseTimedText decodes YouTube's timedtext XML into plain text.
func ParseTimedText(body []byte) (string, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}
	if len(doc.Texts) == 0 {
		return "", fmt.Errorf("timedtext track is empty")
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(t.Body))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
