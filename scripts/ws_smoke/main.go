package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/courtside-live/broadcast-server/internal/proto"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	channels := flag.String("channels", "all", "comma-separated channels to subscribe to")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var welcome struct {
		Type string            `json:"type"`
		Data proto.WelcomeData `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		log.Fatalf("read welcome: %v", err)
	}
	fmt.Printf("Connected as %s, channels: %v\n", welcome.Data.ClientID, welcome.Data.AvailableSubscriptions)

	sub := proto.Inbound{Type: proto.InboundTypeSubscribe, Channels: strings.Split(*channels, ",")}
	if err := wsjson.Write(ctx, conn, sub); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	for {
		var frame struct {
			Type      string          `json:"type"`
			Data      json.RawMessage `json:"data"`
			Timestamp int64           `json:"timestamp"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			log.Fatalf("read: %v", err)
		}
		ts := time.UnixMilli(frame.Timestamp).Format(time.RFC3339)
		fmt.Printf("[%s] %s %s\n", ts, frame.Type, string(frame.Data))
		if frame.Type == proto.OutboundTypeShutdown {
			return
		}
	}
}
