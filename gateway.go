package main

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Gateway invokes a model with a prompt and returns the generated text.
// Implementations must be safe for concurrent independent calls.
type Gateway interface {
	Invoke(ctx context.Context, model string, prompt string) (string, error)
}

// modelReply is the outcome of one model call.
type modelReply struct {
	Model   string
	Content string
	Err     error
}

// invokeNonEmpty calls gw and turns blank text into ErrEmptyCompletion, so a
// reply always carries either content or an error.
func invokeNonEmpty(ctx context.Context, gw Gateway, model, prompt string) (string, error) {
	content, err := gw.Invoke(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

// queryModelsParallel invokes every model with its prompt concurrently and
// waits for all of them. replies[i] belongs to models[i] regardless of
// completion order; arrival lists the indexes of models in the order their
// calls finished. A failing call never cancels its siblings: each call gets
// its own timeout derived from ctx.
//
// Arrivals are recorded by the calling goroutine. onReply, when set, runs
// there right after each arrival is recorded.
func queryModelsParallel(ctx context.Context, gw Gateway, models []string, prompt func(model string) string, timeout time.Duration, onReply func(modelReply)) (replies []modelReply, arrival []int) {
	replies = make([]modelReply, len(models))
	done := make(chan int, len(models))

	var g errgroup.Group
	for i, model := range models {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			content, err := invokeNonEmpty(callCtx, gw, model, prompt(model))
			replies[i] = modelReply{Model: model, Content: content, Err: err}
			done <- i
			return nil
		})
	}

	arrival = make([]int, 0, len(models))
	for range models {
		i := <-done
		arrival = append(arrival, i)
		if onReply != nil {
			onReply(replies[i])
		}
	}
	g.Wait()
	return replies, arrival
}
