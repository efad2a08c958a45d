package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/connecta-server/internal/proto"
)

type outbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name to join with")
	text := flag.String("text", "hello from smoke test", "public message to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(event string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", event, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", event, err)
		}
		return nil
	}

	if err := send(proto.EventJoin, proto.JoinData{Username: *user}); err != nil {
		return err
	}
	if err := send(proto.EventPublicMessage, proto.PublicMessageData{Content: *text}); err != nil {
		return err
	}

	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received event=%s\n", out.Event)

		switch out.Event {
		case proto.EventError:
			if out.Error != nil {
				return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
			}
		case proto.EventUsers:
			fmt.Printf("Online: %s\n", out.Data)
		case proto.EventNewPublicMessage:
			var msg proto.MessageData
			if err := json.Unmarshal(out.Data, &msg); err != nil {
				fmt.Printf("Raw data: %s\n", out.Data)
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("Message: id=%s from=%s content=%q createdAt=%s\n", msg.ID, msg.From, msg.Content, msg.CreatedAt)
			return nil
		}
	}
}
