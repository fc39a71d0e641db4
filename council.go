package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrChairmanFailed marks a round whose Stage 3 synthesis failed. It is the
// only failure that fails a whole round.
var ErrChairmanFailed = errors.New("chairman synthesis failed")

// Progress event types emitted by RunWithProgress.
const (
	EventStage1Start    = "stage1_start"
	EventStage1Complete = "stage1_complete"
	EventStage2Start    = "stage2_start"
	EventStage2Complete = "stage2_complete"
	EventStage3Start    = "stage3_start"
	EventStage3Complete = "stage3_complete"
)

// ProgressEvent reports that a stage started or finished. Result points at
// the round's result as filled so far; it must not be modified.
type ProgressEvent struct {
	Type   string
	Result *DeliberationResult
}

// ProgressFunc receives stage-level progress. It is called from the
// goroutine running the round, never concurrently.
type ProgressFunc func(ProgressEvent)

// CouncilOptions tunes a Council.
type CouncilOptions struct {
	// ModelTimeout bounds each council and chairman call.
	ModelTimeout time.Duration
	// TitleModel and TitleTimeout are used by GenerateConversationTitle.
	TitleModel   string
	TitleTimeout time.Duration
	Logger       *logrus.Logger
	// OnReply, when set, is called once per Stage 1 and Stage 2 reply in the
	// order the replies were recorded. err is nil for a successful reply.
	// Calls come from the goroutine running the round.
	OnReply func(stage int, model string, err error)
}

// Council runs deliberation rounds against a model gateway.
type Council struct {
	gateway Gateway
	opts    CouncilOptions
	logger  *logrus.Logger
}

// NewCouncil creates a Council that sends every model call through gateway.
func NewCouncil(gateway Gateway, opts CouncilOptions) *Council {
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 120 * time.Second
	}
	if opts.TitleTimeout <= 0 {
		opts.TitleTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &Council{gateway: gateway, opts: opts, logger: logger}
}

// Run executes the three-stage council process for question.
func (c *Council) Run(ctx context.Context, question string, cfg CouncilConfig) (*DeliberationResult, error) {
	return c.RunWithProgress(ctx, question, cfg, nil)
}

// RunWithProgress runs the three stages in order: every member answers, the
// members who answered rank the anonymized answers, and the chairman
// synthesizes a final answer. Per-model failures are recorded on the result.
// If the chairman fails, the partial result is returned together with an
// error wrapping ErrChairmanFailed.
//
// When every member fails Stage 1 the round still continues: Stage 2 has
// nothing to rank and the chairman is asked to answer without council input.
func (c *Council) RunWithProgress(ctx context.Context, question string, cfg CouncilConfig, onEvent ProgressFunc) (*DeliberationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	if onEvent == nil {
		onEvent = func(ProgressEvent) {}
	}

	result := &DeliberationResult{
		Stage1:            []Stage1Response{},
		Stage2:            []Stage2Ranking{},
		LabelToModel:      map[string]string{},
		AggregateRankings: []AggregateRanking{},
		Metadata: RoundMetadata{
			RoundID:   uuid.New().String(),
			StartedAt: time.Now().UTC(),
		},
	}
	log := c.logger.WithField("round_id", result.Metadata.RoundID)

	// Stage 1
	onEvent(ProgressEvent{Type: EventStage1Start, Result: result})
	start := time.Now()
	stage1, arrival := c.Stage1CollectResponses(ctx, question, cfg.Members)
	result.Stage1 = stage1
	result.Metadata.Stage1Duration = time.Since(start)
	for _, r := range stage1 {
		if r.Failed() {
			result.Metadata.Failed++
		} else {
			result.Metadata.Succeeded++
		}
	}
	log.WithFields(logrus.Fields{
		"stage":     1,
		"succeeded": result.Metadata.Succeeded,
		"failed":    result.Metadata.Failed,
	}).Info("stage complete")
	if result.Metadata.Succeeded == 0 {
		log.WithField("stage", 1).Warn("all council members failed; continuing without council input")
	}
	onEvent(ProgressEvent{Type: EventStage1Complete, Result: result})

	// Stage 2
	onEvent(ProgressEvent{Type: EventStage2Start, Result: result})
	start = time.Now()
	labels := AssignLabels(successfulInArrivalOrder(stage1, arrival))
	result.Stage2 = c.Stage2CollectRankings(ctx, question, labels, evaluators(stage1))
	result.LabelToModel = labels.Mapping()
	result.AggregateRankings = CalculateAggregateRankings(parsedRankings(result.Stage2), labels, cfg.Members)
	result.Metadata.Stage2Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"stage":      2,
		"evaluators": len(result.Stage2),
		"ranked":     len(result.AggregateRankings),
	}).Info("stage complete")
	onEvent(ProgressEvent{Type: EventStage2Complete, Result: result})

	// Stage 3
	onEvent(ProgressEvent{Type: EventStage3Start, Result: result})
	start = time.Now()
	stage3, err := c.Stage3SynthesizeFinal(ctx, question, cfg.Chairman, result.Stage1, result.Stage2, result.AggregateRankings)
	result.Metadata.Stage3Duration = time.Since(start)
	if err != nil {
		log.WithFields(logrus.Fields{"stage": 3, "model": cfg.Chairman}).WithError(err).Error("chairman failed")
		result.Stage3 = Stage3Response{Model: cfg.Chairman}
		return result, err
	}
	result.Stage3 = stage3
	log.WithField("stage", 3).Info("stage complete")
	onEvent(ProgressEvent{Type: EventStage3Complete, Result: result})

	return result, nil
}

// Stage1CollectResponses asks every member the question concurrently.
// The responses are returned in members order, one per member; arrival lists
// their indexes in the order the calls completed.
func (c *Council) Stage1CollectResponses(ctx context.Context, question string, members []string) ([]Stage1Response, []int) {
	replies, arrival := queryModelsParallel(ctx, c.gateway, members, func(string) string {
		return question
	}, c.opts.ModelTimeout, c.replyHook(1))

	results := make([]Stage1Response, len(replies))
	for i, reply := range replies {
		if reply.Err != nil {
			c.logger.WithFields(logrus.Fields{"stage": 1, "model": reply.Model}).WithError(reply.Err).Warn("model query failed")
			results[i] = Stage1Response{Model: reply.Model, Error: reply.Err.Error()}
			continue
		}
		results[i] = Stage1Response{Model: reply.Model, Response: reply.Content}
	}
	return results, arrival
}

// Stage2CollectRankings asks each evaluator to rank the anonymized responses
// and parses every reply. Parsed rankings keep only the labels of this round.
// Results follow evaluators order. No calls are made when there is nothing to
// rank.
func (c *Council) Stage2CollectRankings(ctx context.Context, question string, labels *AnonymizedSet, evaluators []string) []Stage2Ranking {
	if labels.Len() == 0 || len(evaluators) == 0 {
		return []Stage2Ranking{}
	}

	prompt := buildRankingPrompt(question, labels)
	replies, _ := queryModelsParallel(ctx, c.gateway, evaluators, func(string) string {
		return prompt
	}, c.opts.ModelTimeout, c.replyHook(2))

	results := make([]Stage2Ranking, len(replies))
	for i, reply := range replies {
		if reply.Err != nil {
			c.logger.WithFields(logrus.Fields{"stage": 2, "model": reply.Model}).WithError(reply.Err).Warn("model query failed")
			results[i] = Stage2Ranking{Model: reply.Model, Error: reply.Err.Error()}
			continue
		}
		parsed := labels.Known(ParseRankingFromText(reply.Content))
		if len(parsed) == 0 {
			c.logger.WithFields(logrus.Fields{"stage": 2, "model": reply.Model}).Warn("no ranking found in evaluation")
		}
		results[i] = Stage2Ranking{
			Model:         reply.Model,
			Ranking:       reply.Content,
			ParsedRanking: parsed,
		}
	}
	return results
}

// Stage3SynthesizeFinal asks the chairman for the final answer. A failed call
// is returned wrapped in ErrChairmanFailed.
func (c *Council) Stage3SynthesizeFinal(ctx context.Context, question string, chairman string, stage1 []Stage1Response, stage2 []Stage2Ranking, aggregate []AggregateRanking) (Stage3Response, error) {
	prompt := buildChairmanPrompt(question, stage1, stage2, aggregate)

	callCtx, cancel := context.WithTimeout(ctx, c.opts.ModelTimeout)
	defer cancel()

	content, err := invokeNonEmpty(callCtx, c.gateway, chairman, prompt)
	if err != nil {
		return Stage3Response{}, fmt.Errorf("%w: %s: %v", ErrChairmanFailed, chairman, err)
	}
	return Stage3Response{Model: chairman, Response: content}, nil
}

// GenerateConversationTitle generates a short title for a conversation.
// Returns the generated title or an error if generation fails.
func (c *Council) GenerateConversationTitle(ctx context.Context, question string) (string, error) {
	titlePrompt := fmt.Sprintf(`Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: %s

Title:`, question)

	callCtx, cancel := context.WithTimeout(ctx, c.opts.TitleTimeout)
	defer cancel()

	response, err := c.gateway.Invoke(callCtx, c.opts.TitleModel, titlePrompt)
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	title := strings.Trim(strings.TrimSpace(response), "\"'")
	if title == "" {
		return "", errors.New("title generation returned empty text")
	}
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	return title, nil
}

func (c *Council) replyHook(stage int) func(modelReply) {
	if c.opts.OnReply == nil {
		return nil
	}
	return func(r modelReply) {
		c.opts.OnReply(stage, r.Model, r.Err)
	}
}

// successfulInArrivalOrder returns the successful Stage 1 responses in the
// order their calls completed.
func successfulInArrivalOrder(stage1 []Stage1Response, arrival []int) []Stage1Response {
	out := make([]Stage1Response, 0, len(stage1))
	for _, i := range arrival {
		if !stage1[i].Failed() {
			out = append(out, stage1[i])
		}
	}
	return out
}

// evaluators returns, in council order, the members that answered Stage 1.
func evaluators(stage1 []Stage1Response) []string {
	var out []string
	for _, r := range stage1 {
		if !r.Failed() {
			out = append(out, r.Model)
		}
	}
	return out
}
