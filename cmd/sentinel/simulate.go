package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nickandperla.net/sentinel/internal/autoresponse"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/pkg/sentinel"
)

type simulation struct {
	guildID   int64
	channelID int64
	user      platform.User
	memory    bool
	nextID    int64
}

func newSimulateCmd(a *app) *cobra.Command {
	sim := &simulation{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Type messages and watch the guild's autoresponses react",
		Long: `Each line read from stdin is handled as a message sent by --user in
--channel. End a line with \ to continue the message on the next line.
Side effects are printed instead of sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sim.run(a, cmd)
		},
	}
	flags := cmd.Flags()
	flags.Int64VarP(&sim.guildID, "guild", "g", 1, "Guild id")
	flags.Int64VarP(&sim.channelID, "channel", "c", 2, "Channel id")
	flags.Int64VarP(&sim.user.ID, "user", "u", 3, "Author id")
	flags.StringVar(&sim.user.Name, "name", "tester", "Author name")
	flags.BoolVar(&sim.memory, "memory", false, "Use an empty in-memory store")
	return cmd
}

func (s *simulation) run(a *app, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	console := platform.NewConsole(out)

	var (
		rt  *sentinel.Runtime
		err error
	)
	if s.memory {
		rt, err = sentinel.New(sentinel.WithMemoryStore(), sentinel.WithMessenger(console), sentinel.WithLogger(a.logger))
	} else {
		rt, err = a.runtime(ctx, sentinel.WithMessenger(console))
		defer a.close()
	}
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.HandleGuildJoin(ctx, s.guildID); err != nil {
		return err
	}

	interactive := isTerminal(cmd.InOrStdin())
	if interactive {
		fmt.Fprintf(out, "sentinel simulate: guild %d, channel %d, user %s (Ctrl+D to exit)\n\n",
			s.guildID, s.channelID, s.user.Full())
	}
	return s.loop(ctx, rt, console, cmd.InOrStdin(), out, interactive)
}

func (s *simulation) loop(ctx context.Context, rt *sentinel.Runtime, console *platform.Console, in io.Reader, out io.Writer, prompt bool) error {
	reader := bufio.NewReader(in)
	var multiline strings.Builder
	inMultiline := false

	for {
		if prompt {
			if inMultiline {
				fmt.Fprint(out, "... ")
			} else {
				fmt.Fprint(out, ">>> ")
			}
		}

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if prompt {
				fmt.Fprintln(out)
			}
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasSuffix(line, "\\") {
			multiline.WriteString(strings.TrimSuffix(line, "\\"))
			multiline.WriteString("\n")
			inMultiline = true
			continue
		}

		content := line
		if inMultiline {
			multiline.WriteString(line)
			content = multiline.String()
			multiline.Reset()
			inMultiline = false
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		msg := s.message(content)
		console.Observe(msg)
		outcome, err := rt.HandleMessage(ctx, msg)
		switch {
		case err != nil:
			fmt.Fprintf(out, "Error: %v\n", err)
		case outcome != autoresponse.Ran:
			fmt.Fprintf(out, "(%s)\n", outcome)
		}
	}
}

func (s *simulation) message(content string) *platform.Message {
	s.nextID++
	return &platform.Message{
		ID:          s.nextID,
		ChannelID:   s.channelID,
		GuildID:     s.guildID,
		Content:     content,
		Author:      s.user,
		ChannelName: fmt.Sprintf("channel-%d", s.channelID),
		GuildName:   fmt.Sprintf("guild-%d", s.guildID),
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
