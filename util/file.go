package util

import (
	"encoding/json"
	"os"
	"strings"
)

// WriteToFile writes the given strings to a file, one per line,
// replacing previous content.
func WriteToFile(savePath string, content ...string) error {
	return os.WriteFile(savePath, []byte(strings.Join(content, "\n")+"\n"), 0644)
}

// AppendToFile appends the given strings to a file, one per line,
// creating it if needed.
func AppendToFile(savePath string, content ...string) error {
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, s := range content {
		if _, err = f.WriteString(s + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON marshals v and writes it to a file.
func WriteJSON(savePath string, v interface{}) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(savePath, bs, 0644)
}
