// Command notifytail logs in and prints live notifications from the
// notification websocket until interrupted.
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
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// event mirrors the envelope the server forwards from Redis.
type event struct {
	Type    string `json:"type"`
	Payload struct {
		ID        uint      `json:"id"`
		Type      string    `json:"type"`
		Content   string    `json:"content"`
		TweetID   *uint     `json:"tweet_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"payload"`
}

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "Password123", "Account password")
	flag.Parse()

	if *email == "" {
		log.Fatal("❌ -email is required")
	}

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in as %s", *email)

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/notifications", RawQuery: "token=" + url.QueryEscape(token)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("❌ Dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			var ev event
			if err := json.Unmarshal(raw, &ev); err != nil {
				log.Printf("unrecognized frame: %s", raw)
				continue
			}
			log.Printf("🔔 #%d [%s] %s", ev.Payload.ID, ev.Payload.Type, ev.Payload.Content)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(host, email, password string) (string, error) {
	loginURL := fmt.Sprintf("http://%s/api/auth/login", host)
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(loginURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}
