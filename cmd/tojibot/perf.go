package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ent0n29/tojibot/internal/protocol"
)

type perfOptions struct {
	baseURL        string
	userID         string
	turns          int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type perfResult struct {
	Turns  int     `json:"turns"`
	Errors int     `json:"errors"`
	P50MS  float64 `json:"p50_ms"`
	P95MS  float64 `json:"p95_ms"`
	MaxMS  float64 `json:"max_ms"`
}

var defaultPerfTexts = []string{
	"!toji who are you?",
	"!toji what do you think of sorcerers?",
	"!toji tell me about your son.",
	"!toji what's your favorite weapon?",
}

func newPerfCmd() *cobra.Command {
	var (
		opts     perfOptions
		textsRaw string
	)
	cmd := &cobra.Command{
		Use:   "perf",
		Short: "Replay chat turns over the websocket and report reply latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.baseURL = strings.TrimRight(strings.TrimSpace(opts.baseURL), "/")
			if opts.baseURL == "" {
				return fmt.Errorf("url is required")
			}
			if opts.turns <= 0 {
				return fmt.Errorf("turns must be > 0")
			}
			if opts.turnTimeout < time.Second {
				opts.turnTimeout = time.Second
			}
			texts, err := parsePerfTexts(textsRaw)
			if err != nil {
				return err
			}
			opts.texts = texts

			res, err := runPerf(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			return printServerLatency(cmd.Context(), opts.baseURL, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://127.0.0.1:8080", "tojibot base URL")
	cmd.Flags().StringVar(&opts.userID, "user-id", "perf-replay", "user_id sent with every turn")
	cmd.Flags().IntVar(&opts.turns, "turns", 10, "number of turns to replay")
	cmd.Flags().DurationVar(&opts.interTurnDelay, "inter-turn", 200*time.Millisecond, "delay between turns")
	cmd.Flags().DurationVar(&opts.turnTimeout, "turn-timeout", 60*time.Second, "timeout waiting for each bot_reply")
	cmd.Flags().StringVar(&textsRaw, "texts", "", "messages separated by '|' (optional)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "print every turn")
	return cmd
}

func parsePerfTexts(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), defaultPerfTexts...), nil
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("texts produced no non-empty messages")
	}
	return out, nil
}

func chatWSURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/chat/ws"
	return u.String(), nil
}

func runPerf(ctx context.Context, opts perfOptions, out io.Writer) (perfResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	wsURL, err := chatWSURL(opts.baseURL)
	if err != nil {
		return perfResult{}, fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return perfResult{}, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	var latencies []float64
	errorsSeen := 0
	for i := 0; i < opts.turns; i++ {
		text := opts.texts[i%len(opts.texts)]
		reqID := uuid.NewString()
		start := time.Now()
		if err := conn.WriteJSON(protocol.ClientMessage{
			Type:      protocol.TypeClientMessage,
			RequestID: reqID,
			UserID:    opts.userID,
			Content:   text,
		}); err != nil {
			return perfResult{}, fmt.Errorf("turn %d send: %w", i+1, err)
		}

		ok, err := awaitReply(conn, reqID, opts.turnTimeout)
		if err != nil {
			return perfResult{}, fmt.Errorf("turn %d await bot_reply: %w", i+1, err)
		}
		elapsed := float64(time.Since(start).Microseconds()) / 1000
		latencies = append(latencies, elapsed)
		if !ok {
			errorsSeen++
		}
		if opts.verbose {
			fmt.Fprintf(out, "perf: turn %d/%d %.1fms ok=%v text=%q\n", i+1, opts.turns, elapsed, ok, text)
		}

		if opts.interTurnDelay > 0 && i < opts.turns-1 {
			select {
			case <-ctx.Done():
				return perfResult{}, ctx.Err()
			case <-time.After(opts.interTurnDelay):
			}
		}
	}
	return summarize(latencies, errorsSeen), nil
}

// awaitReply reads frames until the reply for reqID arrives. It reports false
// when the server answered with an error_event instead.
func awaitReply(conn *websocket.Conn, reqID string, timeout time.Duration) (bool, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		var env struct {
			Type      protocol.MessageType `json:"type"`
			RequestID string               `json:"request_id"`
		}
		if err := json.Unmarshal(data, &env); err != nil || env.RequestID != reqID {
			continue
		}
		switch env.Type {
		case protocol.TypeBotReply:
			return true, nil
		case protocol.TypeErrorEvent:
			return false, nil
		}
	}
}

func summarize(latencies []float64, errorsSeen int) perfResult {
	res := perfResult{Turns: len(latencies), Errors: errorsSeen}
	if len(latencies) == 0 {
		return res
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)
	pick := func(q float64) float64 {
		idx := int(q*float64(len(sorted))+0.5) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	res.P50MS = pick(0.50)
	res.P95MS = pick(0.95)
	res.MaxMS = sorted[len(sorted)-1]
	return res
}

func printServerLatency(ctx context.Context, baseURL string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/perf/latency", nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch server latency: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("server latency HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	_, err = fmt.Fprintf(out, "server stages: %s\n", strings.TrimSpace(string(body)))
	return err
}
