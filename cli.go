package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginTop(1)
	modelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// askOptions are the parsed flags of the ask command.
type askOptions struct {
	question string
	council  CouncilConfig
	raw      bool
}

// parseAskArgs parses `ask [-models a,b] [-chairman m] [-raw] question...`.
func parseAskArgs(args []string, defaults CouncilConfig) (askOptions, error) {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	models := fs.String("models", "", "comma separated council members")
	chairman := fs.String("chairman", "", "chairman model")
	raw := fs.Bool("raw", false, "print the final answer without markdown rendering")
	if err := fs.Parse(args); err != nil {
		return askOptions{}, err
	}

	opts := askOptions{
		question: strings.TrimSpace(strings.Join(fs.Args(), " ")),
		council:  defaults.Clone(),
		raw:      *raw,
	}
	if opts.question == "" {
		return askOptions{}, errors.New("usage: llm-council ask [-models a,b,c] [-chairman model] [-raw] <question>")
	}
	if *models != "" {
		opts.council.Members = splitList(*models, ",")
	}
	if *chairman != "" {
		opts.council.Chairman = *chairman
	}
	return opts, opts.council.Validate()
}

// runAsk runs one round and prints it to out. Partial results are printed
// even when the chairman fails; the error is returned afterwards.
func runAsk(ctx context.Context, council *Council, opts askOptions, out io.Writer) error {
	result, err := council.RunWithProgress(ctx, opts.question, opts.council, func(ev ProgressEvent) {
		switch ev.Type {
		case EventStage1Start:
			fmt.Fprintln(out, dimStyle.Render("Stage 1: collecting individual responses..."))
		case EventStage2Start:
			fmt.Fprintln(out, dimStyle.Render("Stage 2: collecting peer rankings..."))
		case EventStage3Start:
			fmt.Fprintln(out, dimStyle.Render("Stage 3: chairman synthesis..."))
		}
	})
	if result == nil {
		return err
	}
	renderResult(out, result, opts.raw)
	return err
}

// renderResult prints every stage of a round.
func renderResult(out io.Writer, result *DeliberationResult, raw bool) {
	fmt.Fprintln(out, headingStyle.Render("Stage 1 - Individual Responses"))
	for _, r := range result.Stage1 {
		if r.Failed() {
			fmt.Fprintf(out, "%s %s\n", modelStyle.Render(r.Model), errorStyle.Render("failed: "+r.Error))
			continue
		}
		fmt.Fprintf(out, "%s\n%s\n\n", modelStyle.Render(r.Model), strings.TrimSpace(r.Response))
	}

	fmt.Fprintln(out, headingStyle.Render("Stage 2 - Peer Rankings"))
	if len(result.Stage2) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no evaluations"))
	}
	for _, r := range result.Stage2 {
		switch {
		case r.Failed():
			fmt.Fprintf(out, "%s %s\n", modelStyle.Render(r.Model), errorStyle.Render("failed: "+r.Error))
		case len(r.ParsedRanking) == 0:
			fmt.Fprintf(out, "%s %s\n", modelStyle.Render(r.Model), dimStyle.Render("no parseable ranking"))
		default:
			revealed := make([]string, len(r.ParsedRanking))
			for i, label := range r.ParsedRanking {
				model, ok := result.LabelToModel[label]
				if !ok {
					model = "?"
				}
				revealed[i] = fmt.Sprintf("%s (%s)", label, model)
			}
			fmt.Fprintf(out, "%s %s\n", modelStyle.Render(r.Model), strings.Join(revealed, " > "))
		}
	}

	fmt.Fprintln(out, headingStyle.Render("Aggregate Ranking"))
	if len(result.AggregateRankings) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no rankings to aggregate"))
	}
	for i, a := range result.AggregateRankings {
		fmt.Fprintf(out, "%d. %s  avg %.2f  (%d votes)\n", i+1, modelStyle.Render(a.Model), a.AverageRank, a.RankingsCount)
	}

	fmt.Fprintln(out, headingStyle.Render("Stage 3 - Final Answer ("+result.Stage3.Model+")"))
	answer := result.Stage3.Response
	if answer == "" {
		fmt.Fprintln(out, errorStyle.Render("no final answer"))
		return
	}
	if !raw {
		if rendered, err := glamour.Render(answer, "dark"); err == nil {
			answer = rendered
		}
	}
	fmt.Fprintln(out, answer)
}
