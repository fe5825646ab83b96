package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backend-roomreq/internal/models"
)

func session(stage models.Stage, msgs ...models.ChatMessage) *models.ConversationSession {
	return &models.ConversationSession{
		ID:       "sess-1",
		Stage:    stage,
		Messages: msgs,
	}
}

func msg(role, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        "msg-" + role,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestDetectRoomEntryRequiresThreeMessages(t *testing.T) {
	short := session(models.StageConcept,
		msg("user", "I want something"),
		msg("user", "yes let's enter the room"),
	)
	assert.Equal(t, SignalNone, Detect(short), "two messages is below the entry threshold")

	long := session(models.StageConcept,
		msg("user", "I want a tool for organizing recipes"),
		msg("assistant", "Tell me more about who would use it."),
		msg("user", "yes let's enter the room"),
	)
	assert.Equal(t, SignalRoomEntry, Detect(long))
}

func TestDetectRoomEntryWinsOverMarketplace(t *testing.T) {
	sess := session(models.StageConcept,
		msg("user", "hello"),
		msg("assistant", "hi"),
		msg("user", "take me to the room of requirements marketplace"),
	)
	assert.Equal(t, SignalRoomEntry, Detect(sess))
}

func TestDetectMarketplace(t *testing.T) {
	sess := session(models.StageConcept,
		msg("user", "I'm looking for an existing solution for auth"),
	)
	assert.Equal(t, SignalMarketplace, Detect(sess))
}

func TestDetectConceptUnderstoodFromAssistant(t *testing.T) {
	sess := session(models.StageConcept,
		msg("user", "I want to build a recipe planner"),
		msg("assistant", "Great. Now let's create a comprehensive description of your project."),
	)
	assert.Equal(t, SignalConceptUnderstood, Detect(sess))
}

func TestDetectConceptUnderstoodFiresOnce(t *testing.T) {
	sess := session(models.StageConcept,
		msg("user", "I want to build a recipe planner"),
		msg("assistant", "Please describe in detail what you have in mind."),
	)
	sess.ConceptUnderstood = true
	assert.Equal(t, SignalNone, Detect(sess), "flag already set, signal must not repeat")
}

func TestDetectConceptUnderstoodOnlyInConceptStage(t *testing.T) {
	sess := session(models.StageRequirements,
		msg("user", "ok"),
		msg("assistant", "Please describe in detail the data model."),
	)
	assert.Equal(t, SignalNone, Detect(sess))
}

func TestDetectEmptySession(t *testing.T) {
	assert.Equal(t, SignalNone, Detect(session(models.StageConcept)))
}

func TestNextTransitions(t *testing.T) {
	assert.Equal(t, models.StageDescription, Next(models.StageConcept, SignalConceptUnderstood))

	// Side-exit signals never move the stage.
	assert.Equal(t, models.StageConcept, Next(models.StageConcept, SignalRoomEntry))
	assert.Equal(t, models.StageConcept, Next(models.StageConcept, SignalMarketplace))
	assert.Equal(t, models.StagePRD, Next(models.StagePRD, SignalConceptUnderstood))
	assert.Equal(t, models.StageTasks, Next(models.StageTasks, SignalNone))
}
