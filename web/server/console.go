package server

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Module    string    `json:"module"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "notice", "warning", "error"
}

var (
	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	logLine    = regexp.MustCompile(`^\[[^\]]*\] \[([^\]]*)\] \[([A-Z]+)\] ?(.*)$`)
)

// ConsoleHub is an io.Writer for the log sink that fans formatted log lines
// out to subscribed render streams. Subscribers that fall behind lose
// messages instead of blocking logging.
type ConsoleHub struct {
	mu      sync.Mutex
	partial []byte
	subs    map[chan ConsoleMessage]struct{}
}

func NewConsoleHub() *ConsoleHub {
	return &ConsoleHub{subs: map[chan ConsoleMessage]struct{}{}}
}

// Subscribe registers a buffered channel that receives every log line until
// the returned cancel function is called
func (h *ConsoleHub) Subscribe(buffer int) (<-chan ConsoleMessage, func()) {
	ch := make(chan ConsoleMessage, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

func (h *ConsoleHub) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.partial = append(h.partial, p...)
	for {
		i := bytes.IndexByte(h.partial, '\n')
		if i < 0 {
			break
		}
		line := string(h.partial[:i])
		h.partial = h.partial[i+1:]
		h.broadcast(parseLogLine(line))
	}
	return len(p), nil
}

func (h *ConsoleHub) broadcast(msg ConsoleMessage) {
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func parseLogLine(line string) ConsoleMessage {
	line = ansiEscape.ReplaceAllString(line, "")
	msg := ConsoleMessage{Message: line, Level: "info", Timestamp: time.Now()}
	if m := logLine.FindStringSubmatch(line); m != nil {
		msg.Module = m[1]
		msg.Level = strings.ToLower(m[2])
		msg.Message = m[3]
	}
	return msg
}
