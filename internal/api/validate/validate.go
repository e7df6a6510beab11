// Package validate checks inbound webhook payloads before they reach the
// orchestrator. Identifiers come from upstream chat transports, so the rules
// stay permissive: printable, bounded, no whitespace.
package validate

import (
	"fmt"
	"regexp"
)

// idRx covers the identifier shapes upstream transports produce: numeric
// chat ids (possibly negative), UUIDs, ULIDs, and plain slugs.
var idRx = regexp.MustCompile(`^-?[A-Za-z0-9_:.-]{1,64}$`)

const (
	maxTextLen = 4096
	maxDataLen = 128
)

// ID validates a transport identifier (user, chat, or project).
func ID(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !idRx.MatchString(v) {
		return fmt.Errorf("%s has an invalid format", field)
	}
	return nil
}

// NonEmpty rejects empty required strings.
func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// MaxLen bounds a field length in bytes.
func MaxLen(field, v string, limit int) error {
	if len(v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// -------- Request specific helpers ----------

// Message validates an inbound chat message payload.
func Message(userID, chatID, projectID, text string) error {
	if err := ID("userId", userID); err != nil {
		return err
	}
	if err := ID("chatId", chatID); err != nil {
		return err
	}
	if err := ID("projectId", projectID); err != nil {
		return err
	}
	if err := NonEmpty("text", text); err != nil {
		return err
	}
	return MaxLen("text", text, maxTextLen)
}

// Callback validates an inbound button-tap payload.
func Callback(userID, chatID, projectID, data string) error {
	if err := ID("userId", userID); err != nil {
		return err
	}
	if err := ID("chatId", chatID); err != nil {
		return err
	}
	if err := ID("projectId", projectID); err != nil {
		return err
	}
	if err := NonEmpty("data", data); err != nil {
		return err
	}
	return MaxLen("data", data, maxDataLen)
}
