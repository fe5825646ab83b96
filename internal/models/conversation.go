package models

import "time"

// Stage labels where a conversation sits in the concept -> PRD -> tasks workflow.
type Stage string

const (
	StageConcept      Stage = "concept"
	StageDescription  Stage = "description"
	StageRequirements Stage = "requirements"
	StagePRD          Stage = "prd"
	StageTasks        Stage = "tasks"
)

// ValidStage reports whether s is one of the known workflow stages.
func ValidStage(s Stage) bool {
	switch s {
	case StageConcept, StageDescription, StageRequirements, StagePRD, StageTasks:
		return true
	}
	return false
}

// UseCase selects which fixed model configuration a request is sent with.
type UseCase string

const (
	UseCaseGeneral  UseCase = "general"
	UseCaseResearch UseCase = "research"
	UseCaseQuick    UseCase = "quick"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user, assistant or system
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model,omitempty"`
	UseCase   UseCase   `json:"useCase,omitempty"`
	Streaming bool      `json:"streaming,omitempty"`
}

type ConversationSession struct {
	ID                string        `json:"id"`
	Messages          []ChatMessage `json:"messages"`
	Stage             Stage         `json:"stage"`
	ProjectName       string        `json:"projectName,omitempty"`
	UserID            string        `json:"userId,omitempty"`
	ConceptUnderstood bool          `json:"conceptUnderstood"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// LastMessage returns the most recent message with the given role, or nil.
func (s *ConversationSession) LastMessage(role string) *ChatMessage {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return &s.Messages[i]
		}
	}
	return nil
}
