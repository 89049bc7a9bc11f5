package memory

import (
	"encoding/json"
	"fmt"
)

type historyEntry struct {
	Type string       `json:"type"`
	Data *historyData `json:"data,omitempty"`

	// Older records stored flat alternating entries.
	Content *string `json:"content,omitempty"`
}

type historyData struct {
	Content *string `json:"content"`
}

type memoryData struct {
	ChatHistory []json.RawMessage `json:"chatHistory"`
}

// EncodeHistory renders turns as the memory_data blob:
// {"chatHistory":[{"type":"human","data":{"content":"..."}}, ...]}.
func EncodeHistory(turns []Turn) (json.RawMessage, error) {
	entries := make([]json.RawMessage, 0, len(turns))
	for _, t := range turns {
		content := t.Content
		raw, err := json.Marshal(historyEntry{
			Type: string(t.Role),
			Data: &historyData{Content: &content},
		})
		if err != nil {
			return nil, fmt.Errorf("encode turn: %w", err)
		}
		entries = append(entries, raw)
	}
	raw, err := json.Marshal(memoryData{ChatHistory: entries})
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return raw, nil
}

// DecodeHistory rebuilds turns from a memory_data blob in stored order.
// Entries are matched by their type tag; entries with an unknown tag, a
// missing or non-string content, or invalid JSON are skipped. A blob whose
// entries carry no type tags at all is read pairwise (human, ai) instead.
// A malformed blob decodes to no turns.
func DecodeHistory(raw json.RawMessage) []Turn {
	if len(raw) == 0 {
		return nil
	}
	var data memoryData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}

	entries := make([]historyEntry, 0, len(data.ChatHistory))
	tagged := false
	for _, item := range data.ChatHistory {
		var e historyEntry
		if err := json.Unmarshal(item, &e); err != nil {
			entries = append(entries, historyEntry{})
			continue
		}
		if e.Type != "" {
			tagged = true
		}
		entries = append(entries, e)
	}

	if !tagged {
		return decodePairwise(entries)
	}

	turns := make([]Turn, 0, len(entries))
	for _, e := range entries {
		content, ok := e.content()
		if !ok {
			continue
		}
		switch Role(e.Type) {
		case RoleHuman, RoleAI:
			turns = append(turns, Turn{Role: Role(e.Type), Content: content})
		}
	}
	return turns
}

func decodePairwise(entries []historyEntry) []Turn {
	turns := make([]Turn, 0, len(entries))
	for i := 0; i+1 < len(entries); i += 2 {
		human, okHuman := entries[i].content()
		ai, okAI := entries[i+1].content()
		if !okHuman || !okAI {
			continue
		}
		turns = append(turns,
			Turn{Role: RoleHuman, Content: human},
			Turn{Role: RoleAI, Content: ai},
		)
	}
	return turns
}

func (e historyEntry) content() (string, bool) {
	switch {
	case e.Data != nil && e.Data.Content != nil:
		return *e.Data.Content, *e.Data.Content != ""
	case e.Content != nil:
		return *e.Content, *e.Content != ""
	default:
		return "", false
	}
}
