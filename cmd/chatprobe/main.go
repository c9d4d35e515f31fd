// Package main provides a command-line probe for the realtime gateway. It
// logs in over HTTP, opens a WebSocket, joins conversation rooms, and prints
// every event frame it receives. Useful for watching delivery behavior during
// development without a browser client.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8480", "API server host")
	email := flag.String("email", "", "User email")
	password := flag.String("password", "password123", "User password")
	rooms := flag.String("rooms", "", "Comma-separated conversation IDs to join")
	pingEvery := flag.Duration("ping", 20*time.Second, "Application ping interval (0 disables)")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Printf("Logged in as %s", *email)

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws", RawQuery: "token=" + token}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()
	log.Printf("Connected to %s", u.String())

	for _, room := range splitRooms(*rooms) {
		frame := map[string]interface{}{
			"type":    "join_room",
			"payload": map[string]string{"room_id": room},
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Fatalf("join_room failed: %v", err)
		}
		log.Printf("Joined %s", room)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			printEvent(raw)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if *pingEvery > 0 {
		ticker = time.NewTicker(*pingEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-done:
			return
		case <-tick:
			frame := map[string]interface{}{"type": "ping"}
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("Ping failed: %v", err)
				return
			}
		case <-interrupt:
			log.Println("Closing connection...")
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}
			return
		}
	}
}

func login(host, email, password string) (string, error) {
	loginURL := fmt.Sprintf("http://%s/api/auth/login", host)
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	body, _ := json.Marshal(payload)

	resp, err := http.Post(loginURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Data.Token == "" {
		return "", fmt.Errorf("no token in login response")
	}
	return result.Data.Token, nil
}

func splitRooms(s string) []string {
	var rooms []string
	for _, part := range strings.Split(s, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		rooms = append(rooms, "conv:"+id)
	}
	return rooms
}

func printEvent(raw []byte) {
	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("<- (unparsed) %s", raw)
		return
	}
	log.Printf("<- %-22s %s", frame.Type, frame.Payload)
}
