package compost

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"backend-roomreq/internal/models"
	"backend-roomreq/internal/openrouter"
	"backend-roomreq/internal/storage"
)

// maxConcurrentExtractions bounds the per-file workers during an upload.
const maxConcurrentExtractions = 4

// ProgressFunc publishes one composting-progress event.
type ProgressFunc func(models.CompostingProgress)

// Upload describes one file sitting in the scratch directory.
type Upload struct {
	Path         string
	OriginalName string
	MimeType     string
}

// Service owns composting sessions and runs the extraction pipeline.
type Service struct {
	store     storage.CompostingStore
	processor *Processor
	gateway   *openrouter.Client
	log       *zap.SugaredLogger
}

func NewService(store storage.CompostingStore, processor *Processor, gateway *openrouter.Client, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, processor: processor, gateway: gateway, log: log}
}

func (s *Service) CreateSession(projectName string) *models.CompostingSession {
	if projectName == "" {
		projectName = "Untitled Project"
	}
	now := time.Now()
	sess := &models.CompostingSession{
		ID:          uuid.NewString(),
		ProjectName: projectName,
		Files:       []models.ProcessedFile{},
		Components:  []models.ComponentChunk{},
		Status:      models.CompostUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
		Progress: models.CompostingProgressState{
			CurrentStep: "Waiting for file upload",
		},
	}
	s.store.Put(sess)
	return sess
}

func (s *Service) GetSession(id string) (*models.CompostingSession, bool) {
	return s.store.Get(id)
}

func (s *Service) UpdateDescription(id, description string) (*models.CompostingSession, bool) {
	sess, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	sess.ProjectDescription = description
	sess.Status = models.CompostDescribing
	s.store.Put(sess)
	return sess, true
}

// ProcessUploads extracts every uploaded file, reporting per-file failures
// as progress events and carrying on with the rest. Source files are
// removed as soon as their text is out.
func (s *Service) ProcessUploads(ctx context.Context, sessionID string, uploads []Upload, progress ProgressFunc) ([]models.ProcessedFile, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found")
	}

	sess.Status = models.CompostProcessing
	sess.Progress.TotalFiles = len(uploads)
	sess.Progress.CurrentStep = "Processing uploaded files"
	s.store.Put(sess)

	results := make([]*models.ProcessedFile, len(uploads))
	var mu sync.Mutex
	done := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentExtractions)
	for i, up := range uploads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}
			mu.Lock()
			soFar := done
			mu.Unlock()
			emit(progress, models.CompostingProgress{
				SessionID: sessionID,
				Step:      "processing_files",
				Progress:  soFar * 50 / len(uploads), // first half of the bar is file processing
				Message:   fmt.Sprintf("Processing %s...", up.OriginalName),
				Data:      map[string]any{"currentFile": up.OriginalName},
			})

			pf, err := s.processor.ExtractFile(up.Path, up.OriginalName, up.MimeType)
			s.processor.Cleanup(up.Path)
			if err != nil {
				// Per-file failures are reported, never fatal.
				s.log.Errorw("error processing file", "file", up.OriginalName, "error", err)
				emit(progress, models.CompostingProgress{
					SessionID: sessionID,
					Step:      "error",
					Message:   fmt.Sprintf("Error processing %s: %v", up.OriginalName, err),
					Data:      map[string]any{"error": true, "fileName": up.OriginalName},
				})
				return nil
			}

			mu.Lock()
			results[i] = &pf
			done++
			processed := done
			sess.Progress.FilesProcessed = processed
			sess.Progress.CurrentStep = fmt.Sprintf("Processed %d/%d files", processed, len(uploads))
			mu.Unlock()
			s.store.Put(sess)

			s.log.Infow("processed file",
				"file", up.OriginalName,
				"size", humanize.Bytes(uint64(pf.Size)),
				"words", pf.WordCount)
			return nil
		})
	}
	_ = g.Wait()

	processedFiles := make([]models.ProcessedFile, 0, len(uploads))
	for _, pf := range results {
		if pf != nil {
			processedFiles = append(processedFiles, *pf)
		}
	}

	sess.Files = append(sess.Files, processedFiles...)
	sess.Progress.FilesProcessed = len(processedFiles)
	sess.Progress.CurrentStep = "Files processed successfully"
	s.store.Put(sess)

	return processedFiles, nil
}

// ExtractComponents runs the heuristic chunker over the session's files and
// then asks the LLM for a re-analysis; any gateway or parse failure keeps
// the heuristic chunks unchanged.
func (s *Service) ExtractComponents(ctx context.Context, sessionID string, progress ProgressFunc) ([]models.ComponentChunk, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	if len(sess.Files) == 0 {
		return nil, fmt.Errorf("no files to process")
	}

	sess.Status = models.CompostProcessing
	sess.Progress.CurrentStep = "Extracting reusable components"
	s.store.Put(sess)

	emit(progress, models.CompostingProgress{
		SessionID: sessionID,
		Step:      "extracting_components",
		Progress:  50,
		Message:   "Analyzing content for reusable components...",
	})

	var heuristic []models.ComponentChunk
	for _, file := range sess.Files {
		heuristic = append(heuristic, ChunkFile(file, sess.ProjectDescription)...)
	}

	emit(progress, models.CompostingProgress{
		SessionID: sessionID,
		Step:      "ai_analysis",
		Progress:  70,
		Message:   "Enhancing components with AI analysis...",
	})

	result := s.enhance(ctx, sess, heuristic)
	if result.Fallback {
		s.log.Warnw("AI enhancement fell back to heuristic chunks",
			"sessionId", sessionID, "reason", result.Reason)
	} else {
		emit(progress, models.CompostingProgress{
			SessionID: sessionID,
			Step:      "ai_complete",
			Progress:  90,
			Message:   "AI analysis complete, finalizing components...",
		})
	}
	components := result.Components

	sess.Components = components
	sess.Status = models.CompostReviewing
	sess.Progress.ComponentsExtracted = len(components)
	sess.Progress.CurrentStep = "Components extracted successfully"
	s.store.Put(sess)

	emit(progress, models.CompostingProgress{
		SessionID: sessionID,
		Step:      "components_ready",
		Progress:  100,
		Message:   fmt.Sprintf("Extracted %d reusable components", len(components)),
		Data:      map[string]any{"components": components},
	})

	return components, nil
}

func (s *Service) enhance(ctx context.Context, sess *models.CompostingSession, heuristic []models.ComponentChunk) EnhanceResult {
	var combined strings.Builder
	for _, file := range sess.Files {
		fmt.Fprintf(&combined, "File: %s\nContent:\n%s\n\n", file.OriginalName, file.Content)
	}

	prompt, err := BuildExtractionPrompt(combined.String(), sess.ProjectDescription, len(heuristic))
	if err != nil {
		return fallback("building prompt: "+err.Error(), heuristic)
	}

	resp, err := s.gateway.SendMessage(ctx, []openrouter.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: prompt},
	}, models.UseCaseGeneral)
	if err != nil {
		return fallback("gateway error: "+err.Error(), heuristic)
	}

	return ParseAIResponse(resp.Content(), heuristic)
}

func (s *Service) CompleteSession(id string) (*models.CompostingSession, bool) {
	sess, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}
	sess.Status = models.CompostCompleted
	sess.Progress.CurrentStep = "Composting completed successfully"
	s.store.Put(sess)
	return sess, true
}

func (s *Service) AllSessions() []*models.CompostingSession {
	return s.store.List()
}

func (s *Service) DeleteSession(id string) bool {
	return s.store.Delete(id)
}

// SessionStats rolls one session up for the admin dashboard.
func (s *Service) SessionStats(id string) (map[string]any, bool) {
	sess, ok := s.store.Get(id)
	if !ok {
		return nil, false
	}

	totalWords := 0
	for _, f := range sess.Files {
		totalWords += f.WordCount
	}
	avgScore := 0
	if len(sess.Components) > 0 {
		sum := 0
		for _, c := range sess.Components {
			sum += c.ReusabilityScore
		}
		avgScore = int(float64(sum)/float64(len(sess.Components)) + 0.5)
	}

	return map[string]any{
		"sessionId":               sess.ID,
		"projectName":             sess.ProjectName,
		"status":                  sess.Status,
		"filesCount":              len(sess.Files),
		"componentsCount":         len(sess.Components),
		"totalWords":              totalWords,
		"averageReusabilityScore": avgScore,
		"createdAt":               sess.CreatedAt,
		"updatedAt":               sess.UpdatedAt,
	}, true
}

func emit(progress ProgressFunc, p models.CompostingProgress) {
	if progress != nil {
		progress(p)
	}
}
