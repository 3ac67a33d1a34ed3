package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/database"
	"knowledge-base-platform/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeStore struct {
	mu   sync.Mutex
	docs map[string]*models.Document
	kbs  map[string]*models.KnowledgeBase

	updates []models.DocumentUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs: make(map[string]*models.Document),
		kbs:  make(map[string]*models.KnowledgeBase),
	}
}

func (s *fakeStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeStore) UpdateDocument(_ context.Context, id string, patch models.DocumentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return database.ErrNotFound
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
	}
	if patch.ProcessingInfo != nil {
		doc.ProcessingInfo = *patch.ProcessingInfo
	}
	if patch.Metadata != nil {
		doc.Metadata = *patch.Metadata
	}
	if patch.EmbeddingIDs != nil {
		doc.EmbeddingIDs = patch.EmbeddingIDs
	}
	s.updates = append(s.updates, patch)
	return nil
}

func (s *fakeStore) GetKnowledgeBase(_ context.Context, id string) (*models.KnowledgeBase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kb, ok := s.kbs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *kb
	return &copied, nil
}

func (s *fakeStore) MarkReprocessRequested(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return database.ErrNotFound
	}
	doc.Metadata.ReprocessRequested = true
	return nil
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) CreateAndStoreEmbeddings(_ context.Context, _, _, docID string, chunks []models.Chunk, _ int) ([]string, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("%s:%d", docID, i)
	}
	return ids, nil
}

type fakeFetcher struct {
	text string
	meta map[string]any
	err  error
}

func (f *fakeFetcher) FetchContent(_ context.Context, _ string) (string, map[string]any, error) {
	return f.text, f.meta, f.err
}

type testPipeline struct {
	store    *fakeStore
	embedder *fakeEmbedder
	fetchers map[models.SourceType]*fakeFetcher
	service  *IngestService

	userID string
	kbID   string
	docID  string
}

func newTestPipeline(t *testing.T, sourceType models.SourceType) *testPipeline {
	t.Helper()

	store := newFakeStore()
	embedder := &fakeEmbedder{}
	fetchers := map[models.SourceType]*fakeFetcher{
		models.SourceURL:   {text: "page content"},
		models.SourceVideo: {text: "video transcript text"},
		models.SourceCloud: {text: "cloud file text"},
	}

	userID := primitive.NewObjectID()
	kbID := primitive.NewObjectID()
	docID := primitive.NewObjectID()

	store.kbs[kbID.Hex()] = &models.KnowledgeBase{
		ID:     kbID,
		UserID: userID,
		Name:   "kb",
	}
	store.docs[docID.Hex()] = &models.Document{
		ID:              docID,
		KnowledgeBaseID: kbID,
		UserID:          userID,
		SourceType:      sourceType,
		SourceURL:       "https://example.com/thing",
		Title:           "Test Document",
		Content:         "inline document content",
		Status:          models.StatusInitial,
	}

	cfg := &config.Config{MaxChunkSize: 1000, ChunkOverlap: 200}
	service := NewIngestService(cfg, IngestDeps{
		Store:       store,
		Embedder:    embedder,
		Providers:   &fakeDirectory{},
		Pages:       fetchers[models.SourceURL],
		Transcripts: fetchers[models.SourceVideo],
		CloudFiles:  fetchers[models.SourceCloud],
	})

	return &testPipeline{
		store:    store,
		embedder: embedder,
		fetchers: fetchers,
		service:  service,
		userID:   userID.Hex(),
		kbID:     kbID.Hex(),
		docID:    docID.Hex(),
	}
}

func (p *testPipeline) doc(t *testing.T) *models.Document {
	t.Helper()
	doc, err := p.store.GetDocument(context.Background(), p.docID)
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	return doc
}

func TestProcessTextDocument(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)

	resp, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Status != models.StatusProcessed {
		t.Fatalf("expected processed, got %s", resp.Status)
	}
	if resp.Chunks != 1 || resp.Embeddings != 1 {
		t.Fatalf("expected 1 chunk and 1 embedding, got %d/%d", resp.Chunks, resp.Embeddings)
	}

	doc := p.doc(t)
	if doc.Status != models.StatusProcessed {
		t.Fatalf("stored status = %s", doc.Status)
	}
	if doc.Content != "inline document content" {
		t.Fatalf("content lost: %q", doc.Content)
	}
	if doc.ProcessingInfo.Progress != progressDone {
		t.Fatalf("progress = %d", doc.ProcessingInfo.Progress)
	}
	if doc.ProcessingInfo.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if doc.Metadata.EmbeddingCount != 1 || len(doc.EmbeddingIDs) != 1 {
		t.Fatalf("embedding bookkeeping wrong: count=%d ids=%d",
			doc.Metadata.EmbeddingCount, len(doc.EmbeddingIDs))
	}
}

func TestProcessURLDocument(t *testing.T) {
	p := newTestPipeline(t, models.SourceURL)

	resp, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Status != models.StatusProcessed {
		t.Fatalf("expected processed, got %s", resp.Status)
	}
	if got := p.doc(t).Content; got != "page content" {
		t.Fatalf("fetched content not persisted: %q", got)
	}
}

func TestProcessConflict(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)

	if !p.service.guard.TryAcquire(p.docID) {
		t.Fatal("setup acquire failed")
	}
	defer p.service.guard.Release(p.docID)

	_, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if !errors.Is(err, ErrProcessingConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if p.store.updateCount() != 0 {
		t.Fatal("conflicting call must not touch the document")
	}
}

func TestProcessedDocumentShortCircuits(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)
	p.store.docs[p.docID].Status = models.StatusProcessed
	p.store.docs[p.docID].Metadata = models.ResultMetadata{ChunkCount: 3, EmbeddingCount: 3}

	resp, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Message != "document already processed" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.Chunks != 3 || resp.Embeddings != 3 {
		t.Fatalf("short-circuit should report stored counts, got %d/%d", resp.Chunks, resp.Embeddings)
	}
	if p.embedder.calls != 0 {
		t.Fatal("short-circuit must not embed")
	}
	if p.store.updateCount() != 0 {
		t.Fatal("short-circuit must not write")
	}
}

func TestReprocessRequestDefeatsShortCircuit(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)
	p.store.docs[p.docID].Status = models.StatusProcessed
	p.store.docs[p.docID].Metadata = models.ResultMetadata{
		ChunkCount: 3, EmbeddingCount: 3, ReprocessRequested: true,
	}

	if _, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if p.embedder.calls != 1 {
		t.Fatal("reprocess request should run the pipeline")
	}
	if p.doc(t).Metadata.ReprocessRequested {
		t.Fatal("reprocess flag should be cleared on completion")
	}
}

func TestProcessedVideoWithoutTranscriptReruns(t *testing.T) {
	p := newTestPipeline(t, models.SourceVideo)
	p.store.docs[p.docID].Status = models.StatusProcessed
	p.store.docs[p.docID].Content = ""
	p.store.docs[p.docID].Metadata = models.ResultMetadata{ChunkCount: 2, EmbeddingCount: 2}

	if _, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if p.embedder.calls != 1 {
		t.Fatal("lost transcript should force a rerun")
	}
	if got := p.doc(t).Content; got != "video transcript text" {
		t.Fatalf("transcript not restored: %q", got)
	}
}

func TestVideoTranscriptSanitizedBeforePersist(t *testing.T) {
	p := newTestPipeline(t, models.SourceVideo)
	p.fetchers[models.SourceVideo].text = "hello\x00world\x07 transcript"

	if _, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if got := p.doc(t).Content; got != "helloworld transcript" {
		t.Fatalf("stored transcript not sanitized: %q", got)
	}
}

func TestVideoTranscriptSurvivesEmbeddingFailure(t *testing.T) {
	p := newTestPipeline(t, models.SourceVideo)
	p.embedder.err = fmt.Errorf("provider unavailable")

	_, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err == nil {
		t.Fatal("expected embedding failure")
	}

	doc := p.doc(t)
	if doc.Status != models.StatusFailed {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.Content != "video transcript text" {
		t.Fatalf("transcript lost on failure: %q", doc.Content)
	}
	if doc.ProcessingInfo.Error == "" {
		t.Fatal("failure cause not recorded")
	}
}

func TestExtractionFailureMarksFailed(t *testing.T) {
	p := newTestPipeline(t, models.SourceURL)
	p.fetchers[models.SourceURL].err = fmt.Errorf("fetch timeout")

	_, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err == nil {
		t.Fatal("expected extraction failure")
	}
	doc := p.doc(t)
	if doc.Status != models.StatusFailed {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.ProcessingInfo.Error == "" {
		t.Fatal("failure cause not recorded")
	}
	if doc.ProcessingInfo.StartedAt == nil {
		t.Fatal("failed run lost its start timestamp")
	}
}

func TestWhitespaceContentProcessesWithZeroChunks(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)
	p.store.docs[p.docID].Content = " \x00 \t "

	resp, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Status != models.StatusProcessed {
		t.Fatalf("expected processed, got %s", resp.Status)
	}
	if resp.Chunks != 0 || resp.Embeddings != 0 {
		t.Fatalf("expected zero chunks and embeddings, got %d/%d", resp.Chunks, resp.Embeddings)
	}
	if p.embedder.calls != 0 {
		t.Fatal("nothing should be embedded")
	}
}

func TestOwnershipChecks(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)

	otherUser := primitive.NewObjectID().Hex()
	if _, err := p.service.ProcessDocument(context.Background(), otherUser, p.kbID, p.docID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for wrong user, got %v", err)
	}

	otherKB := primitive.NewObjectID().Hex()
	if _, err := p.service.ProcessDocument(context.Background(), p.userID, otherKB, p.docID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for wrong knowledge base, got %v", err)
	}

	missing := primitive.NewObjectID().Hex()
	if _, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, missing); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequestReprocess(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)

	if err := p.service.RequestReprocess(context.Background(), p.userID, p.kbID, p.docID); err != nil {
		t.Fatalf("request reprocess failed: %v", err)
	}
	if !p.doc(t).Metadata.ReprocessRequested {
		t.Fatal("reprocess flag not set")
	}

	otherUser := primitive.NewObjectID().Hex()
	if err := p.service.RequestReprocess(context.Background(), otherUser, p.kbID, p.docID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func TestKnowledgeBaseSettingsRespected(t *testing.T) {
	p := newTestPipeline(t, models.SourceText)
	p.store.kbs[p.kbID].Settings = models.KnowledgeBaseSettings{
		EmbeddingProvider: "anthropic",
		ChunkSize:         50,
		ChunkOverlap:      10,
	}
	longText := ""
	for i := 0; i < 40; i++ {
		longText += "lorem ipsum "
	}
	p.store.docs[p.docID].Content = longText

	resp, err := p.service.ProcessDocument(context.Background(), p.userID, p.kbID, p.docID)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if resp.Chunks < 2 {
		t.Fatalf("expected multiple chunks with size 50, got %d", resp.Chunks)
	}

	doc := p.doc(t)
	if doc.Metadata.EmbeddingProvider != 2 {
		t.Fatalf("provider not resolved from settings: %d", doc.Metadata.EmbeddingProvider)
	}
	if doc.ProcessingInfo.ChunkSize != 50 || doc.ProcessingInfo.ChunkOverlap != 10 {
		t.Fatalf("chunk settings not recorded: size=%d overlap=%d",
			doc.ProcessingInfo.ChunkSize, doc.ProcessingInfo.ChunkOverlap)
	}
}
