package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

// Summarizer is the asynchronous summarization collaborator. It is
// invoked after a session ends and returns the id of the generated
// summary.
type Summarizer interface {
	Summarize(ctx context.Context, id domain.SessionID) (string, error)
}

const summarizeTimeout = 5 * time.Minute

// synthesize runs detached from the end-session command: the command
// returns as soon as the end transition is durable, the summary
// broadcast arrives whenever the collaborator finishes.
func (a *Authority) synthesize() {
	ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
	defer cancel()

	summaryID, err := a.summarizer.Summarize(ctx, a.session.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "app.authority").
			Str("session", string(a.session.ID)).Msg("summarization failed")
		return
	}

	a.mu.Lock()
	a.broadcastLocked(core.SummaryGeneratedEvent{
		Type:      core.EvSummaryGenerated,
		SummaryID: summaryID,
	})
	a.mu.Unlock()

	log.Info().Str("module", "app.authority").
		Str("session", string(a.session.ID)).Str("summary", summaryID).Msg("summary ready")
}
