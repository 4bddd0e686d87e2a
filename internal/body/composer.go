package body

import (
	"context"
	"errors"
	"log/slog"

	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/extract"
)

// ErrConstraintUnsatisfied means no draft met the length and sentinel
// contracts within the attempt budget.
var ErrConstraintUnsatisfied = errors.New("body text failed length/sentinel constraints after all attempts")

const (
	maxAttempts    = 4
	draftTemp      = 0.4
	correctionTemp = 0.3
)

// Text is the two-paragraph narrative portion of the AMS record.
type Text struct {
	P1 string
	P2 string
}

// action is the outcome of evaluating a draft within one attempt.
type action int

const (
	actionAccept  action = iota // draft passes, exit the loop
	actionCorrect               // length out of budget, issue one corrective rewrite
	actionRetry                 // unsalvageable this attempt, start the next one
)

// evaluate is the pure step function of the attempt loop: given a split
// draft and whether this attempt already used its corrective rewrite, it
// decides the next transition. At most one correction per attempt; a
// sentinel violation is never corrected in place, only redrafted.
func evaluate(rec *extract.Record, p1, p2 string, corrected bool) action {
	if ValidLength(p1, p2) && SentinelSatisfied(rec, p1+p2) {
		return actionAccept
	}
	if !ValidLength(p1, p2) && !corrected {
		return actionCorrect
	}
	return actionRetry
}

type Composer struct {
	llm    *dashscope.Client
	model  string
	logger *slog.Logger
}

func NewComposer(llm *dashscope.Client, model string, logger *slog.Logger) *Composer {
	return &Composer{llm: llm, model: model, logger: logger}
}

// Compose requests the two-paragraph body from the LLM and drives the
// bounded draft/correct/validate loop. Each call starts a fresh attempt
// counter; attempts are sequential, one in-flight request at a time.
func (c *Composer) Compose(ctx context.Context, rec *extract.Record) (Text, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		draft, err := c.llm.Chat(ctx, c.model, []dashscope.Message{
			{Role: "user", Content: draftPrompt(rec.Raw)},
		}, draftTemp)
		if err != nil {
			return Text{}, err
		}

		p1, p2 := SplitParagraphs(draft)

		act := evaluate(rec, p1, p2, false)
		if act == actionCorrect {
			c.logger.Info("body draft out of budget, requesting rewrite",
				"session_id", rec.SessionID,
				"attempt", attempt,
				"glyphs", CountGlyphs(p1+p2),
			)
			rewrite, err := c.llm.Chat(ctx, c.model, []dashscope.Message{
				{Role: "user", Content: correctivePrompt(p1, p2)},
			}, correctionTemp)
			if err != nil {
				return Text{}, err
			}
			p1, p2 = SplitParagraphs(rewrite)
			act = evaluate(rec, p1, p2, true)
		}

		if act == actionAccept {
			c.logger.Info("body accepted",
				"session_id", rec.SessionID,
				"attempt", attempt,
				"glyphs", CountGlyphs(p1+p2),
			)
			return Text{P1: p1, P2: p2}, nil
		}

		c.logger.Warn("body attempt failed validation",
			"session_id", rec.SessionID,
			"attempt", attempt,
			"glyphs", CountGlyphs(p1+p2),
		)
	}

	return Text{}, ErrConstraintUnsatisfied
}
