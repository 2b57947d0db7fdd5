// Package testdata embeds recorded hand-tracking sessions used by tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io"
)

//go:embed frames/*
var framesFS embed.FS

// ReadRecording returns the raw JSON-lines content of a recording by name.
func ReadRecording(name string) ([]byte, error) {
	data, err := framesFS.ReadFile("frames/" + name)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// OpenRecording returns a reader over a recording by name.
func OpenRecording(name string) (io.Reader, error) {
	data, err := ReadRecording(name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Recordings lists the embedded recording names.
func Recordings() ([]string, error) {
	entries, err := framesFS.ReadDir("frames")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
