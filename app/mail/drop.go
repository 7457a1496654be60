package mail

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
)

const processedDirName = "processed"

// Message is one dropped mail body ready for extraction.
type Message struct {
	File string
	Body string
}

// Drop scans a directory for dropped mail bodies. Each file holds one
// message; HTML bodies are stripped to plain text before extraction.
// Consumed files are moved to a processed/ subdirectory so a message is
// ingested at most once.
type Drop struct {
	dir string
}

func NewDrop(dir string) *Drop {
	return &Drop{dir: dir}
}

func (d *Drop) Scan() ([]Message, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mail drop directory: %w", err)
	}

	var messages []Message
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(d.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read mail body %s: %w", entry.Name(), err)
		}

		messages = append(messages, Message{
			File: entry.Name(),
			Body: d.extractText(entry.Name(), string(data)),
		})
	}

	return messages, nil
}

// MarkProcessed moves a consumed message into the processed subdirectory.
func (d *Drop) MarkProcessed(file string) error {
	processedDir := filepath.Join(d.dir, processedDirName)
	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}

	src := filepath.Join(d.dir, file)
	dest := filepath.Join(processedDir, file)
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("failed to move %s to processed: %w", file, err)
	}

	return nil
}

func (d *Drop) extractText(name, body string) string {
	if !isHTML(name, body) {
		return body
	}

	article, err := readability.FromReader(strings.NewReader(body), nil)
	if err != nil || article.TextContent == "" {
		slog.Warn("Failed to strip HTML mail body, using raw content", "file", name, "error", err)
		return body
	}

	return article.TextContent
}

func isHTML(name, body string) bool {
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".html" || ext == ".htm" {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body")
}
