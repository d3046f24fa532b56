package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

const replHelp = `Commands:
  /sessions          list sessions
  /new               start a new session
  /resume <n|id>     switch to a session
  /delete <n|id>     delete a session
  /deleteall         delete every session
  /reset             clear the conversation and start over
  /history           show the conversation
  /quit              leave
Anything else is sent as a message.`

// runREPL reads lines from in until EOF or /quit. Lines starting with "/"
// are commands; everything else is sent to the active session.
func runREPL(ctx context.Context, chat *service.Chat, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if active, ok := chat.Active(); ok {
		fmt.Fprintf(out, "Session: %s (%s). Type /help for commands.\n", active.Preview, active.ID)
		if msgs := chat.Messages(); len(msgs) > 0 {
			printMessages(out, msgs)
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			reply, err := chat.Send(ctx, line)
			switch {
			case reply.Text != "":
				printMessages(out, []domain.Message{reply})
			case err != nil:
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue
		}

		quit, err := runCommand(ctx, chat, line, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func runCommand(ctx context.Context, chat *service.Chat, line string, out io.Writer) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, replHelp)
	case "/sessions":
		printSessions(out, chat.Sessions(), chat.ActiveID())
	case "/new":
		sess, err := chat.CreateSession(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Started session %s\n", sess.ID)
	case "/resume":
		if arg == "" {
			return false, errors.New("usage: /resume <n|id>")
		}
		id := resolveSession(chat.Sessions(), arg)
		if err := chat.ResumeSession(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Resumed session %s\n", id)
		printMessages(out, chat.Messages())
	case "/delete":
		if arg == "" {
			return false, errors.New("usage: /delete <n|id>")
		}
		id := resolveSession(chat.Sessions(), arg)
		if err := chat.DeleteSession(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Deleted session %s\n", id)
	case "/deleteall":
		if err := chat.DeleteAll(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Deleted all sessions")
	case "/reset":
		sess, err := chat.Reset(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Started session %s\n", sess.ID)
	case "/history":
		printMessages(out, chat.Messages())
	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}
