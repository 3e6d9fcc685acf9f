package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// NormalizeName trims surrounding whitespace and applies NFC normalization so
// display names typed on different keyboards compare equal. Message
// attribution depends on this comparison, so both sides of it must go
// through here.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// SendJSON marshals data and writes it to the connection as a single text frame.
func SendJSON(conn *websocket.Conn, data interface{}) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("error writing message: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML file and unmarshals it into a struct of type T.
func LoadConfig[T any](filepath string) (*T, error) {
	// 1. Read the file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// 2. Initialize an empty instance of T
	var config T

	// 3. Unmarshal the YAML data into the struct
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	return &config, nil
}
