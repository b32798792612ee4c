// Command chatcli is a line-oriented terminal client for the OneSky
// assistant. It keeps a live websocket session to the backend and falls
// back to plain HTTP when the socket is unavailable.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/oneskyhq/onesky/backend/internal/assistant"
	"github.com/oneskyhq/onesky/backend/internal/model/chat"
)

func main() {
	defaultServer := os.Getenv("ASSISTANT_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	server := flag.String("server", defaultServer, "OneSky API base URL")
	user := flag.String("user", "", "user id sent with each message")
	verbose := flag.Bool("v", false, "log connection events")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	opts := assistant.Options{ServerURL: *server}
	if *user != "" {
		opts.SocketPath = "/api/chatbot/ws?user=" + *user
		opts.ChatPath = "/api/chatbot/chat?user=" + *user
	}

	var (
		printMu sync.Mutex
		printed int
		client  *assistant.Client
	)
	opts.OnUpdate = func() {
		printMu.Lock()
		printed = printNew(client, printed)
		printMu.Unlock()
	}

	client, err := assistant.New(opts, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chatcli:", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "chatcli: no live session, replies will use the HTTP fallback")
	}

	fmt.Println("Connected to", *server, "- type a message, or /quit to exit.")

	lines := make(chan string)
	go readLines(lines)

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := client.Send(ctx, line); err != nil {
				fmt.Fprintln(os.Stderr, "chatcli:", err)
				continue
			}
			// Give a streamed reply a moment to arrive before prompting again.
			waitForReply(ctx, client)
		}
	}
}

// waitForReply blocks until the assistant's reply is finalized or a short
// deadline passes.
func waitForReply(ctx context.Context, client *assistant.Client) {
	deadline := time.After(20 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
			messages := client.Messages()
			if len(messages) == 0 {
				continue
			}
			last := messages[len(messages)-1]
			if last.Role == chat.RoleAssistant && last.Finalized() {
				return
			}
		}
	}
}

// printNew prints transcript messages past the given index and returns the
// new high-water mark. Streaming updates rewrite the current line in place.
func printNew(client *assistant.Client, from int) int {
	if client == nil {
		return from
	}
	messages := client.Messages()
	for i := from; i < len(messages); i++ {
		msg := messages[i]
		if msg.Role == chat.RoleUser {
			continue
		}
		if !msg.Finalized() {
			// Still streaming; show progress without committing the line.
			fmt.Printf("\rassistant: %s", msg.Text)
			return i
		}
		fmt.Printf("\rassistant: %s\n", msg.Text)
		if msg.Attachments != nil {
			printAttachments(msg)
		}
	}
	return len(messages)
}

func printAttachments(msg chat.Message) {
	for _, ev := range msg.Attachments.Events {
		fmt.Printf("  [event] %s - %s, %s\n", ev.Title, ev.City, ev.Date)
	}
	for _, team := range msg.Attachments.Teams {
		fmt.Printf("  [team] %s (%d members)\n", team.Name, team.MemberCount)
	}
	for _, badge := range msg.Attachments.Badges {
		fmt.Printf("  [badge] %s: %s\n", badge.Name, badge.Criteria)
	}
}

func readLines(out chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}
