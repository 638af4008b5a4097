package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TobiSchelling/wonderpick/internal/logging"
	"github.com/TobiSchelling/wonderpick/internal/metrics"
	"github.com/TobiSchelling/wonderpick/internal/recommend"
	"github.com/TobiSchelling/wonderpick/internal/records"
	"github.com/TobiSchelling/wonderpick/internal/session"
)

var errQuit = errors.New("quit")

// runPlay drives interactive rounds until the input ends or the user quits.
func runPlay(ctx context.Context, in io.Reader, out io.Writer, store records.Store, m *metrics.Metrics) error {
	sess, err := session.New(ctx, store)
	if err != nil {
		return err
	}
	sess.OnRecord(func(rec recommend.Record, confirmed bool) {
		m.RecordsAppended.WithLabelValues(metrics.SourceCLI).Inc()
		logging.Debug().
			Str("session", sess.ID).
			Int("start", rec.Start).
			Int("result", rec.Result).
			Bool("confirmed", confirmed).
			Str("source", metrics.SourceCLI).
			Msg("record appended")
	})
	reader := bufio.NewReader(in)

	fmt.Fprintf(out, "%d round(s) on record. Enter q at any prompt to quit.\n", sess.HistorySize())
	for {
		err := playRound(ctx, reader, out, sess)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(out, "Bye.")
			return nil
		}
		if err != nil {
			return err
		}
		sess.Reset()
	}
}

func playRound(ctx context.Context, reader *bufio.Reader, out io.Writer, sess *session.Session) error {
	for {
		start, err := askPosition(reader, out, "\nStarting position (1-5): ")
		if err != nil {
			return err
		}
		if err := sess.Choose(start); err != nil {
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}
		break
	}

	fmt.Fprint(out, "Press Enter to reveal the suggestion...")
	if _, err := readLine(reader); err != nil {
		return err
	}
	if err := sess.Reveal(); err != nil {
		return err
	}
	res := sess.Suggestion()
	printResult(out, sess.Start(), res)

	for {
		fmt.Fprintf(out, "Was position %d correct? [y/n]: ", res.BestPosition)
		answer, err := readLine(reader)
		if err != nil {
			return err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			if err := sess.Confirm(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Great! Your feedback has been recorded.")
			return nil
		case "n", "no":
			if err := sess.Reject(); err != nil {
				return err
			}
			for {
				result, err := askPosition(reader, out, "Which position was it? (1-5): ")
				if err != nil {
					return err
				}
				if err := sess.ReportActual(ctx, result); err != nil {
					if errors.Is(err, recommend.ErrInvalidPosition) {
						fmt.Fprintf(out, "  %v\n", err)
						continue
					}
					return err
				}
				fmt.Fprintln(out, "Thanks for your feedback. We'll improve our suggestions.")
				return nil
			}
		}
	}
}

// askPosition prompts until the user enters an integer or quits.
func askPosition(reader *bufio.Reader, out io.Writer, prompt string) (int, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := readLine(reader)
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			fmt.Fprintf(out, "  not a number: %q\n", line)
			continue
		}
		return n, nil
	}
}

// readLine returns the trimmed next line. End of input and "q" both yield errQuit.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errQuit
		}
		return "", err
	}
	if strings.EqualFold(line, "q") || strings.EqualFold(line, "quit") {
		return "", errQuit
	}
	return line, nil
}

// printResult writes the confidence table for a recommendation.
func printResult(out io.Writer, start int, res *recommend.Result) {
	fmt.Fprintf(out, "\nSuggested position: %d\n", res.BestPosition)
	if res.IsDefaultSuggestion {
		fmt.Fprintf(out, "  No history for start %d yet; this is a default suggestion.\n", start)
	} else {
		fmt.Fprintf(out, "  Based on %d previous round(s) from start %d.\n", res.TotalMatches, start)
	}
	fmt.Fprintln(out)
	for _, pc := range res.AllPositions {
		bar := strings.Repeat("#", pc.Confidence/5)
		fmt.Fprintf(out, "  %d  %3d%%  %-20s  %-6s  seen %d\n", pc.Position, pc.Confidence, bar, recommend.BandFor(pc.Confidence), pc.Count)
	}
}
