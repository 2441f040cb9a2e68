// ABOUTME: Chat and ask commands send natural-language requests through the mediator
// ABOUTME: chat runs an interactive session; ask sends a single request and exits
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/core"
)

var (
	chatDatabase string
	askDatabase  string
)

// NewChatCmd creates the interactive chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session with the database assistant",
		Long: `Start an interactive session with the database assistant.

Each line you type is sent to the assistant together with verified
schema memory and your recent conversation. SQL replies are executed
immediately and their results shown.

Session commands:
  /db NAME     select a database (empty NAME clears the selection)
  /databases   list databases that exist live and in schema memory
  /quit        leave the session`,
		Example: `  chat2db chat --user alice
  chat2db chat --user root --database HR`,
		RunE: runChat,
	}

	cmd.Flags().StringVarP(&chatDatabase, "database", "d", "", "Database to select for the session")

	return cmd
}

// NewAskCmd creates the single-request ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask MESSAGE",
		Short: "Send one request to the database assistant",
		Long: `Send one natural-language request to the database assistant and
print its reply. SQL replies are executed and their results printed.`,
		Example: `  chat2db ask --user alice "How many employees are in HR?"
  chat2db ask --user alice -d HR "list every department" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringVarP(&askDatabase, "database", "d", "", "Database to select for the request")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{requireCompleter: true})
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.currentUser()
	if err != nil {
		return err
	}

	turn, err := a.mediator.Ask(commandContext(cmd), core.Session{User: user, Database: askDatabase}, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return renderTurn(cmd.OutOrStdout(), resolveFormat(cmd.OutOrStdout(), outputFormat), turn)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{requireCompleter: true})
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.currentUser()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := core.Session{User: user, Database: chatDatabase}
	out := cmd.OutOrStdout()
	format := resolveFormat(out, outputFormat)
	in := bufio.NewScanner(cmd.InOrStdin())

	if !quiet {
		fmt.Fprintf(out, "Connected as %s (%s). Type /quit to leave.\n", user.Username, user.Role)
	}

	for {
		fmt.Fprint(out, chatPrompt(sess))
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		done, err := handleChatCommand(ctx, a, &sess, out, format, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		if done {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			continue
		}

		turn, err := a.mediator.Ask(ctx, sess, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		if err := renderTurn(out, format, turn); err != nil {
			return err
		}
	}
}

// handleChatCommand runs a slash command. Returns done when the session should end.
func handleChatCommand(ctx context.Context, a *app, sess *core.Session, out io.Writer, format, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, nil
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/db":
		sess.Database = ""
		if len(fields) > 1 {
			sess.Database = fields[1]
		}
		return false, nil
	case "/databases":
		dbs, err := a.mediator.AvailableDatabases(ctx)
		if err != nil {
			return false, err
		}
		return false, renderList(out, format, "DATABASE", dbs)
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

func chatPrompt(sess core.Session) string {
	if sess.Database != "" {
		return fmt.Sprintf("%s@%s> ", sess.User.Username, sess.Database)
	}
	return sess.User.Username + "> "
}

// commandContext returns cmd's context, or Background when it has none
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
