package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

var baseURL = flag.String("url", "http://localhost:8000", "map assistant base URL")

type chatRequest struct {
	Messages     []types.Turn `json:"messages"`
	SessionToken string       `json:"session_token,omitempty"`
}

// chatStream sends the transcript, prints deltas as they arrive and returns
// the full reply plus the next session token.
func chatStream(ctx context.Context, req chatRequest) (string, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, *baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var reply strings.Builder
	var token string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var event struct {
			Type  string          `json:"type"`
			Data  json.RawMessage `json:"data"`
			Error string          `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return "", "", fmt.Errorf("decode event: %w", err)
		}

		switch event.Type {
		case types.EventTypeContext:
			var c struct {
				SessionToken string `json:"session_token"`
				Resolved     struct {
					Name   string `json:"name"`
					Source string `json:"source"`
				} `json:"resolved"`
			}
			if err := json.Unmarshal(event.Data, &c); err == nil {
				token = c.SessionToken
				fmt.Printf("[context: %s (%s)]\n", c.Resolved.Name, c.Resolved.Source)
			}
		case types.EventTypeMessage:
			var m struct {
				Delta string `json:"delta"`
			}
			if err := json.Unmarshal(event.Data, &m); err == nil {
				reply.WriteString(m.Delta)
				fmt.Print(m.Delta)
			}
		case types.EventTypeError:
			return reply.String(), token, fmt.Errorf("stream error: %s", event.Error)
		case types.EventTypeComplete:
			fmt.Println()
		}
	}
	return reply.String(), token, scanner.Err()
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}
	flag.Parse()
	ctx := context.Background()

	var req chatRequest
	in := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		req.Messages = append(req.Messages, types.Turn{Role: types.RoleUser, Content: types.TextContent(line)})

		reply, token, err := chatStream(ctx, req)
		if err != nil {
			log.Println(err)
		}
		if reply != "" {
			req.Messages = append(req.Messages, types.Turn{Role: types.RoleAssistant, Content: types.TextContent(reply)})
		}
		if token != "" {
			req.SessionToken = token
		}
		fmt.Print("> ")
	}
}
