package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/connecta-server/internal/proto"
)

const usage = `Commands:
  <text>                   send to the public room
  /msg <user> <text>       send a direct message
  /history <user>          show the conversation with user
  /react <msgId> <emoji>   toggle a reaction on a public message
  /users                   list online users`

type outbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "display name")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.EventJoin, proto.JoinData{Username: *user}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println(usage)

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload})
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		printEvent(out)
	}
}

func printEvent(out outbound) {
	switch out.Event {
	case proto.EventNewPublicMessage, proto.EventNewPrivateMessage:
		var msg proto.MessageData
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			log.Printf("unmarshal message: %v", err)
			return
		}
		where := "GENERAL"
		if msg.To != "" {
			where = msg.From + " -> " + msg.To
		}
		fmt.Printf("[%s] %s: %s (%s)\n", where, msg.From, msg.Content, msg.ID)
	case proto.EventPublicHistory:
		var msgs []proto.MessageData
		if err := json.Unmarshal(out.Data, &msgs); err != nil {
			log.Printf("unmarshal history: %v", err)
			return
		}
		for _, msg := range msgs {
			fmt.Printf("[GENERAL %s] %s: %s (%s)\n", msg.CreatedAt, msg.From, msg.Content, msg.ID)
		}
	case proto.EventPrivateHistory:
		var hist proto.PrivateHistoryData
		if err := json.Unmarshal(out.Data, &hist); err != nil {
			log.Printf("unmarshal private history: %v", err)
			return
		}
		fmt.Printf("--- conversation with %s (%d messages) ---\n", hist.With, len(hist.History))
		for _, msg := range hist.History {
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt, msg.From, msg.Content)
		}
	case proto.EventUsers:
		var names []string
		if err := json.Unmarshal(out.Data, &names); err == nil {
			fmt.Printf("online: %s\n", strings.Join(names, ", "))
		}
	case proto.EventTyping:
		var typing proto.TypingEventData
		if err := json.Unmarshal(out.Data, &typing); err == nil {
			fmt.Printf("%s is typing...\n", typing.From)
		}
	case proto.EventUsersStatus, proto.EventAvatars, proto.EventBackgrounds, proto.EventTypingStop:
		// not rendered in the terminal
	case proto.EventError:
		if out.Error != nil {
			fmt.Printf("error %s: %s\n", out.Error.Code, out.Error.Msg)
		}
	default:
		fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
	}
}

// parseLine turns one input line into an inbound event.
func parseLine(line string) (string, any, error) {
	if !strings.HasPrefix(line, "/") {
		return proto.EventPublicMessage, proto.PublicMessageData{Content: line}, nil
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/msg":
		to, text, ok := strings.Cut(rest, " ")
		if !ok || strings.TrimSpace(text) == "" {
			return "", nil, errors.New("usage: /msg <user> <text>")
		}
		return proto.EventPrivateMessage, proto.PrivateMessageData{To: to, Content: strings.TrimSpace(text)}, nil
	case "/history":
		if rest == "" {
			return "", nil, errors.New("usage: /history <user>")
		}
		return proto.EventGetPrivateHistory, proto.PrivateHistoryRequest{With: rest}, nil
	case "/react":
		id, emoji, ok := strings.Cut(rest, " ")
		if !ok || strings.TrimSpace(emoji) == "" {
			return "", nil, errors.New("usage: /react <msgId> <emoji>")
		}
		return proto.EventReactMessage, proto.ReactData{MsgID: id, Reaction: strings.TrimSpace(emoji), Scope: "public"}, nil
	case "/users":
		return proto.EventRequestUsers, struct{}{}, nil
	default:
		return "", nil, fmt.Errorf("unknown command %s\n%s", cmd, usage)
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			event, data, err := parseLine(text)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := send(ctx, conn, event, data); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
