package listener

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"code-lottery-go/internal/models"

	"go.uber.org/zap"
)

// feedLine is one JSON observation, e.g.
// {"group":"123","user":"456","kind":"message","at":"2025-03-05T12:00:00Z"}
type feedLine struct {
	Group string    `json:"group"`
	User  string    `json:"user"`
	Kind  string    `json:"kind"`
	At    time.Time `json:"at"`
}

// ReadFeed decodes newline-delimited JSON observations from r and sends them
// to out until r is exhausted or ctx is cancelled. Malformed lines are
// skipped. out is closed on return.
func ReadFeed(ctx context.Context, r io.Reader, out chan<- models.GroupMessage) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var line feedLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			zap.L().Warn("Skipping malformed observation", zap.Int("line", lineNo), zap.Error(err))
			continue
		}

		kind := models.GroupEventKind(strings.ToLower(line.Kind))
		switch kind {
		case models.GroupEventMessage, models.GroupEventJoin, models.GroupEventLeave:
		case "":
			kind = models.GroupEventMessage
		default:
			zap.L().Warn("Skipping observation of unknown kind", zap.Int("line", lineNo), zap.String("kind", line.Kind))
			continue
		}

		msg := models.GroupMessage{GroupID: line.Group, UserID: line.User, Kind: kind, At: line.At}
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read observation feed: %w", err)
	}
	return nil
}
