package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/chat"
	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/identity"
	"github.com/npratt/nova/internal/relay"
)

const chatPrompt = "you> "

func newChatCmd() *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with NOVA through the relay",
		Long: `Send a message to NOVA and print the reply. Without a message, chat
interactively until EOF. --history prints the stored conversation instead.

When NOVA offers a tour and a headless tour is running, it is started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed(FlagEndpoint) {
				cfg.Chat.Endpoint = viper.GetString(FlagEndpoint)
			}

			client, err := newChatClient(cfg.Chat)
			if err != nil {
				return err
			}
			visitor := visitorProvider(cfg).Get()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if viper.GetBool(FlagShowHistory) {
				return printHistory(ctx, out, client, visitor, viper.GetInt(FlagLimit))
			}

			onAction := func(action string) {
				if action != relay.ActionStartTour {
					return
				}
				if dc, err := getDaemonClient(cmd); err == nil && dc.Start() == nil {
					fmt.Fprintln(out, "(tour started)")
					return
				}
				fmt.Fprintln(out, `(run "nova tour" to take the tour)`)
			}

			if len(args) > 0 {
				return sendOne(ctx, out, client, visitor, strings.Join(args, " "), onAction)
			}
			return converse(ctx, cmd.InOrStdin(), out, client, visitor, onAction)
		},
	}
	chatCmd.Flags().String(FlagEndpoint, "", "Chat relay base URL")
	chatCmd.Flags().Bool(FlagShowHistory, false, "Print the conversation history")
	chatCmd.Flags().Int(FlagLimit, chat.DefaultHistoryLimit, "Messages to show with --history")
	return chatCmd
}

func newIdentityCmd() *cobra.Command {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Show or reset the visitor id",
		Long: `Print the anonymous visitor id that ties chat history to you. The id is
created on first use. --reset replaces it, starting a fresh conversation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := visitorProvider(cfg)
			id := p.Get()
			if viper.GetBool(FlagReset) {
				id = p.Reset()
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	identityCmd.Flags().Bool(FlagReset, false, "Replace the visitor id with a new one")
	return identityCmd
}

// visitorProvider installs the file-backed visitor id for this process.
func visitorProvider(cfg *config.Config) *identity.Provider {
	p := identity.NewProvider(identity.NewFileStore(identityPath(cfg)), slog.Default())
	identity.SetDefault(p)
	return p
}

func sendOne(ctx context.Context, out io.Writer, backend chat.Backend, visitor, message string, onAction func(string)) error {
	reply, err := backend.Send(ctx, visitor, message)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "NOVA: %s\n", reply.Message)
	for _, action := range reply.Actions {
		onAction(action)
	}
	return nil
}

// converse reads one message per line until EOF. Failed sends are reported
// and the conversation continues.
func converse(ctx context.Context, in io.Reader, out io.Writer, backend chat.Backend, visitor string, onAction func(string)) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, chatPrompt)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if text := strings.TrimSpace(scanner.Text()); text != "" {
			if err := sendOne(ctx, out, backend, visitor, text, onAction); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
		fmt.Fprint(out, chatPrompt)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func printHistory(ctx context.Context, out io.Writer, backend chat.Backend, visitor string, limit int) error {
	messages, err := backend.History(ctx, visitor, limit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(out, "No messages yet")
		return nil
	}
	for _, m := range messages {
		who := "you"
		if m.Role == chat.RoleAssistant {
			who = "NOVA"
		}
		stamp := ""
		if !m.CreatedAt.IsZero() {
			stamp = "[" + m.CreatedAt.Local().Format("2006-01-02 15:04") + "] "
		}
		fmt.Fprintf(out, "%s%s: %s\n", stamp, who, m.Content)
	}
	return nil
}
