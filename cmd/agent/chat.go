package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/internal/telegram"
	"github.com/petasbytes/snapbooks/memory"
)

const photoCommand = "/photo "

func runChat(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	agent, err := a.buildRunner(ctx)
	if err != nil {
		return err
	}
	return chatLoop(ctx, agent, cmd.String("conversation"), os.Stdin, os.Stdout)
}

// chatLoop reads one message per line until ctx ends or in is exhausted.
// "/photo <path>" sends an image with the default bill caption.
func chatLoop(ctx context.Context, agent telegram.Agent, convID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Chat with SnapBooks in conversation %q (Ctrl-C to quit)\n", convID)
	fmt.Fprintln(out, "Send \"/photo <path>\" to process a bill image.")

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(in)
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\u001b[94mYou\u001b[0m: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting...")
			return nil
		case l, ok := <-inputCh:
			if !ok {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		msg, err := chatMessage(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		conv, outcome, err := agent.Handle(ctx, convID, msg)
		if conv == nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printReply(out, conv, outcome)
		if err != nil {
			fmt.Fprintf(out, "warning: %v\n", err)
		}
	}
}

func chatMessage(line string) (memory.Message, error) {
	path, ok := strings.CutPrefix(line, photoCommand)
	if !ok {
		return memory.NewUserText(line), nil
	}
	path = strings.TrimSpace(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return memory.Message{}, fmt.Errorf("read photo: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return memory.Message{}, fmt.Errorf("%s is not an image", path)
	}
	return memory.Message{
		Role: memory.RoleUser,
		Parts: []memory.Part{
			memory.BinaryPart(mimeType, data),
			memory.TextPart(telegram.DefaultCaption),
		},
	}, nil
}

func printReply(out io.Writer, conv *memory.Conversation, outcome runner.Outcome) {
	fmt.Fprintf(out, "\u001b[93mSnapBooks\u001b[0m: %s\n", telegram.ExtractResponseText(conv))
	if path, ok := telegram.ExtractInvoicePath(conv); ok {
		fmt.Fprintf(out, "invoice: %s\n", path)
	}
	fmt.Fprintf(out, "\u001b[90m[%s, %d call(s), $%.6f, total $%.6f]\u001b[0m\n",
		outcome.State, outcome.Calls, outcome.Cost, conv.Cost)
}
