package models

import "time"

// CompostingStatus tracks a session through the upload -> extract lifecycle.
type CompostingStatus string

const (
	CompostUploading  CompostingStatus = "uploading"
	CompostDescribing CompostingStatus = "describing"
	CompostProcessing CompostingStatus = "processing"
	CompostReviewing  CompostingStatus = "reviewing"
	CompostCompleted  CompostingStatus = "completed"
)

type ComponentType string

const (
	ComponentCode          ComponentType = "code"
	ComponentDocumentation ComponentType = "documentation"
	ComponentConfiguration ComponentType = "configuration"
	ComponentDesign        ComponentType = "design"
	ComponentOther         ComponentType = "other"
)

// ProcessedFile is the extracted form of one uploaded file. The source file
// on disk is removed right after extraction, so this is all that remains.
type ProcessedFile struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Content      string    `json:"content"`
	WordCount    int       `json:"wordCount"`
	ExtractedAt  time.Time `json:"extractedAt"`
}

// ComponentChunk is a single extracted, scored, tagged slice of source text.
type ComponentChunk struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	Type             ComponentType `json:"type"`
	Tags             []string      `json:"tags"`
	ReusabilityScore int           `json:"reusabilityScore"`
	Dependencies     []string      `json:"dependencies,omitempty"`
}

type CompostingProgressState struct {
	FilesProcessed      int    `json:"filesProcessed"`
	TotalFiles          int    `json:"totalFiles"`
	ComponentsExtracted int    `json:"componentsExtracted"`
	CurrentStep         string `json:"currentStep"`
}

type CompostingSession struct {
	ID                 string                  `json:"id"`
	UserID             string                  `json:"userId,omitempty"`
	ProjectName        string                  `json:"projectName"`
	ProjectDescription string                  `json:"projectDescription"`
	Files              []ProcessedFile         `json:"files"`
	Components         []ComponentChunk        `json:"components"`
	Status             CompostingStatus        `json:"status"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
	Progress           CompostingProgressState `json:"progress"`
}

// CompostingProgress is one event on the composting-progress channel.
type CompostingProgress struct {
	SessionID string         `json:"sessionId"`
	Step      string         `json:"step"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}
