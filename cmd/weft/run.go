package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/kursio/weft"
	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/llm/openai"
)

var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Run a training flow interactively in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		title, _ := cmd.Flags().GetString("title")

		engine := weft.New(openai.New(), weft.WithLogger(logger))
		if err := engine.Graphs().RegisterFile("main", args[0]); err != nil {
			return fmt.Errorf("load graph: %w", err)
		}

		ctx := cmd.Context()
		meta := map[string]string{}
		if title != "" {
			meta["title"] = title
		}

		sessionID, res, err := engine.StartSession(ctx, "main", meta)
		if err != nil {
			return err
		}

		out := newRenderer()
		out.result(res)

		scanner := bufio.NewScanner(os.Stdin)
		for res.Action != domain.ActionEnd {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "/quit" {
				break
			}

			res, err = engine.Step(ctx, "main", sessionID, input)
			if err != nil {
				return err
			}
			out.result(res)
		}

		return engine.EndSession(ctx, sessionID)
	},
}

func init() {
	runCmd.Flags().String("title", "", "Training title passed as context to the language service")
	rootCmd.AddCommand(runCmd)
}

// renderer prints step results, with markdown styling when stdout is a
// capable terminal.
type renderer struct {
	markdown *glamour.TermRenderer
}

func newRenderer() *renderer {
	if termenv.ColorProfile() == termenv.Ascii {
		return &renderer{}
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return &renderer{}
	}
	return &renderer{markdown: md}
}

func (r *renderer) result(res *domain.StepResult) {
	if res.Action != domain.ActionRespond && res.Action != "" {
		fmt.Printf("[%s]\n", res.Action)
	}
	if res.Message == "" {
		return
	}

	if r.markdown != nil {
		if styled, err := r.markdown.Render(res.Message); err == nil {
			fmt.Print(styled)
			return
		}
	}
	fmt.Println(res.Message)
}
