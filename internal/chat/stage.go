// Package chat holds the conversation stage machine and the streaming
// relay that carries completions from the gateway to websocket clients.
package chat

import (
	"strings"

	"backend-roomreq/internal/models"
)

// Signal is what the transcript scan found after an exchange.
type Signal int

const (
	SignalNone Signal = iota
	// SignalRoomEntry means the user asked to enter the room and the
	// conversation has enough content to do so.
	SignalRoomEntry
	// SignalMarketplace means the user is looking for an existing component.
	SignalMarketplace
	// SignalConceptUnderstood means the assistant asked for a detailed
	// description, indicating the concept stage is done.
	SignalConceptUnderstood
)

// minMessagesForRoomEntry gates auto room entry on conversation length.
const minMessagesForRoomEntry = 3

var roomEntryPhrases = []string{
	"yes lets enter the room",
	"yes let's enter the room",
	"enter the room",
	"lets enter the room",
	"let's enter the room",
	"lets go to the room",
	"let's go to the room",
	"go to the room",
	"yes enter the room",
	"room of requirements",
	"go to room",
	"enter room",
	"take me to the room",
	"bring me to the room",
	"i want to go to the room",
	"can we go to the room",
	"ready for the room",
	"time for the room",
}

var marketplaceKeywords = []string{
	"find an existing component",
	"find existing component",
	"looking for component",
	"search for component",
	"existing solution",
	"reusable component",
	"marketplace",
}

// descriptionPrompts are the assistant phrasings that mark the concept as
// understood.
var descriptionPrompts = []string{
	"let's create the best possible description",
	"now let's create a comprehensive description",
	"i need you to be very specific about what we're building",
	"please describe in detail",
	"the more detailed you are",
	"be very specific about",
	"comprehensive description",
}

// Detect scans the session transcript and returns the strongest signal.
// Room entry is checked before marketplace intent; the keyword lists
// overlap and room entry wins when both match.
func Detect(sess *models.ConversationSession) Signal {
	if lastUser := sess.LastMessage("user"); lastUser != nil {
		content := strings.ToLower(lastUser.Content)

		if containsAny(content, roomEntryPhrases) && len(sess.Messages) >= minMessagesForRoomEntry {
			return SignalRoomEntry
		}
		if containsAny(content, marketplaceKeywords) {
			return SignalMarketplace
		}
	}

	// The concept -> description transition fires at most once per session.
	if sess.Stage == models.StageConcept && !sess.ConceptUnderstood {
		if lastAssistant := sess.LastMessage("assistant"); lastAssistant != nil {
			content := strings.ToLower(lastAssistant.Content)
			if containsAny(content, descriptionPrompts) {
				return SignalConceptUnderstood
			}
		}
	}

	return SignalNone
}

// Next is the pure transition function over stages. Side-exit signals
// (room entry, marketplace) never change the stored stage.
func Next(current models.Stage, sig Signal) models.Stage {
	if sig == SignalConceptUnderstood && current == models.StageConcept {
		return models.StageDescription
	}
	return current
}

func containsAny(content string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}
