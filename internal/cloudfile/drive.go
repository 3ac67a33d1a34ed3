package cloudfile

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"knowledge-base-platform/internal/config"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Google Workspace MIME types that must be exported rather than downloaded.
const (
	mimeGoogleDoc    = "application/vnd.google-apps.document"
	mimeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	mimeGoogleSlides = "application/vnd.google-apps.presentation"
	mimeFolder       = "application/vnd.google-apps.folder"
)

// maxFetchSize caps downloaded cloud file content (10MB).
const maxFetchSize = 10 << 20

var driveURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`docs\.google\.com/(?:document|spreadsheets|presentation)/d/([a-zA-Z0-9_-]+)`),
}

// Client is the cloud-file content-fetch collaborator, backed by Google
// Drive. It normalizes a shared-file URL into text plus file metadata.
type Client struct {
	apiKey string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{apiKey: cfg.GoogleDriveAPIKey}
}

// FetchContent resolves the Drive file behind fileURL and returns its
// textual content and metadata. Folders and binary formats are fatal.
func (c *Client) FetchContent(ctx context.Context, fileURL string) (string, map[string]any, error) {
	fileID, err := ExtractFileID(fileURL)
	if err != nil {
		return "", nil, err
	}

	svc, err := drive.NewService(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", nil, fmt.Errorf("create drive service: %w", err)
	}

	file, err := svc.Files.Get(fileID).Fields("id", "name", "mimeType", "size", "modifiedTime", "webViewLink").Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("get drive file %s: %w", fileID, err)
	}

	if file.MimeType == mimeFolder {
		return "", nil, fmt.Errorf("drive item %s is a folder, not a file", fileID)
	}

	text, err := c.fetchText(ctx, svc, file)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("drive file %s has no extractable text (%s)", file.Name, file.MimeType)
	}

	meta := map[string]any{
		"file_id":       file.Id,
		"file_name":     file.Name,
		"mime_type":     file.MimeType,
		"size":          file.Size,
		"modified_time": file.ModifiedTime,
		"web_link":      file.WebViewLink,
	}
	return text, meta, nil
}

// ExtractFileID pulls the Drive file id out of the shared-link URL forms.
func ExtractFileID(fileURL string) (string, error) {
	for _, re := range driveURLPatterns {
		if m := re.FindStringSubmatch(fileURL); len(m) == 2 {
			return m[1], nil
		}
	}
	// Bare ids are accepted too
	if regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`).MatchString(fileURL) {
		return fileURL, nil
	}
	return "", fmt.Errorf("could not extract drive file id from %q", fileURL)
}

func (c *Client) fetchText(ctx context.Context, svc *drive.Service, file *drive.File) (string, error) {
	// Workspace files export; everything else downloads
	switch file.MimeType {
	case mimeGoogleDoc, mimeGoogleSlides:
		return c.export(ctx, svc, file.Id, "text/plain")
	case mimeGoogleSheet:
		return c.export(ctx, svc, file.Id, "text/csv")
	}

	if !isTextLike(file.MimeType) {
		return "", fmt.Errorf("unsupported cloud file type %q", file.MimeType)
	}
	if file.Size > maxFetchSize {
		return "", fmt.Errorf("cloud file too large (%d bytes)", file.Size)
	}

	resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("download drive file: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read drive file: %w", err)
	}
	return string(body), nil
}

func (c *Client) export(ctx context.Context, svc *drive.Service, fileID, mimeType string) (string, error) {
	resp, err := svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("export drive file: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read exported content: %w", err)
	}
	return string(body), nil
}

func isTextLike(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/csv":
		return true
	}
	return false
}
