// Package chatcmder provides the chat command, an interactive terminal REPL
// over the conversation loop.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragloop/pkg/cliui"
	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/dotdir"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/rag"
	"github.com/papercomputeco/ragloop/pkg/stack"
	"github.com/papercomputeco/ragloop/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

const (
	cmdExit  = "/exit"
	cmdReset = "/reset"
)

// responder is the part of *rag.Loop the REPL drives.
type responder interface {
	Respond(ctx context.Context, userText string, history []llm.ConversationTurn, opts ...rag.RespondOption) (*rag.Reply, error)
}

type chatCommander struct {
	provider       string
	upstream       string
	model          string
	topK           int
	embeddingProv  string
	embeddingModel string
	vectorProv     string
	vectorTarget   string
	traceStore     string

	ingestDir   string
	fresh       bool
	showContext bool
	debug       bool
	configDir   string

	markdown bool
	cfg      *config.Config
	dotdir   *dotdir.Manager
	logger   *slog.Logger
}

var boundFlags = []string{
	config.FlagCompletionProv,
	config.FlagCompletionTgt,
	config.FlagCompletionModel,
	config.FlagTopK,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagTraceStore,
}

const chatLongDesc string = `Start an interactive chat with the knowledge base.

Each message is answered by the conversation loop: relevant documents are
retrieved from the configured vector store and passed to the chat model as
context. Answers are rendered as markdown when writing to a terminal.

The transcript is saved in the .ragloop/ directory and resumed by the next
"ragloop chat". Use --new or type /reset to start over, /exit or Ctrl+D to quit.

Examples:
  ragloop chat --ingest ./docs
  ragloop chat --provider anthropic --model claude-haiku-4-5-20251001
  ragloop chat --vector-store-provider sqlite --vector-store-target ./vectors.db`

const chatShortDesc string = "Chat with the knowledge base in the terminal"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{dotdir: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.configDir, _ = cmd.Flags().GetString(config.FlagConfigDir)
			cmder.cfg, err = config.ResolveCommand(cmd, config.Flags, boundFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(true),
				logger.WithWriter(os.Stderr),
			)
			cmder.markdown = cliui.IsTerminal(os.Stdout)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionProv, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionTgt, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionModel, &cmder.model)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagTraceStore, &cmder.traceStore)

	cmd.Flags().StringVarP(&cmder.ingestDir, "ingest", "i", "", "Directory of .txt and .md files to load before chatting")
	cmd.Flags().BoolVarP(&cmder.fresh, "new", "n", false, "Start a new conversation instead of resuming the saved one")
	cmd.Flags().BoolVar(&cmder.showContext, "show-context", false, "Print the retrieved documents under each answer")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	s, err := stack.New(ctx, c.cfg, c.logger, stack.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.logger.Warn("closing components", "error", err)
		}
	}()

	if c.ingestDir != "" {
		err := cliui.Step(os.Stdout, "Loading "+c.ingestDir, func() error {
			_, err := s.Ingester.IngestDir(ctx, c.ingestDir)
			return err
		})
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", c.ingestDir, err)
		}
	}

	state, err := c.loadState()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(s.Completer.Name()+"/"+s.Completer.Model()),
	)
	return c.repl(ctx, os.Stdin, os.Stdout, s.Loop, state)
}

// loadState returns the saved transcript, or a new one when there is none
// or --new was given.
func (c *chatCommander) loadState() (*dotdir.ChatState, error) {
	if c.fresh {
		if err := c.dotdir.ClearChatState(c.configDir); err != nil {
			return nil, err
		}
		return newState(), nil
	}

	state, err := c.dotdir.LoadChatState(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading chat state: %w", err)
	}
	if state == nil || state.SessionID == "" {
		return newState(), nil
	}
	return state, nil
}

func newState() *dotdir.ChatState {
	return &dotdir.ChatState{SessionID: uuid.NewString()}
}

// repl reads messages from in until EOF or /exit and writes answers to out.
// A failed exchange leaves the transcript unchanged so the user can retry.
func (c *chatCommander) repl(ctx context.Context, in io.Reader, out io.Writer, loop responder, state *dotdir.ChatState) error {
	if len(state.Messages) > 0 {
		fmt.Fprintf(out, "  %s Resuming session %s %s\n",
			cliui.SuccessMark,
			cliui.IDStyle.Render(utils.Truncate(state.SessionID, 8)),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(state.Messages))),
		)
	} else {
		fmt.Fprintf(out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset starts over, /exit or Ctrl+D quits."))

	history := toTurns(state.Messages)
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case cmdExit:
			fmt.Fprintln(out)
			return nil
		case cmdReset:
			history = nil
			*state = *newState()
			if err := c.dotdir.ClearChatState(c.configDir); err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s Conversation reset\n\n", cliui.SuccessMark)
			continue
		}

		reply, err := loop.Respond(ctx, input, history, rag.WithSessionID(state.SessionID))
		if err != nil {
			fmt.Fprintf(out, "  %s %s\n\n", cliui.FailMark, cliui.ErrorStyle.Render(err.Error()))
			continue
		}

		history = append(history,
			llm.NewTurn(llm.RoleUser, input),
			llm.NewTurn(llm.RoleAssistant, reply.Text),
		)
		state.Messages = toMessages(history)
		if err := c.dotdir.SaveChatState(state, c.configDir); err != nil {
			c.logger.Warn("saving chat state", "error", err)
		}

		fmt.Fprintf(out, "%s%s\n", assistantPrompt, c.render(reply.Text))
		if c.showContext {
			for _, m := range reply.Matches {
				fmt.Fprintf(out, "  %s %s %s\n",
					cliui.IDStyle.Render(m.ID),
					cliui.ScoreStyle.Render(fmt.Sprintf("%.3f", m.Score)),
					cliui.DimStyle.Render(utils.Truncate(utils.OneLine(m.Text), 60)),
				)
			}
		}
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func (c *chatCommander) render(text string) string {
	if !c.markdown {
		return text
	}
	rendered, err := cliui.RenderMarkdown(text)
	if err != nil {
		c.logger.Debug("rendering markdown", "error", err)
		return text
	}
	return "\n" + strings.TrimRight(rendered, "\n")
}

func toTurns(messages []dotdir.ChatMessage) []llm.ConversationTurn {
	turns := make([]llm.ConversationTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, llm.NewTurn(llm.Role(m.Role), m.Content))
	}
	return turns
}

func toMessages(turns []llm.ConversationTurn) []dotdir.ChatMessage {
	messages := make([]dotdir.ChatMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, dotdir.ChatMessage{Role: string(t.Role), Content: t.Content})
	}
	return messages
}
