package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// HistoryCursor points at one page of a user's booking history
type HistoryCursor struct {
	UserID int64
	Page   int
}

func DecodeHistoryCursor(cursorStr string) (*HistoryCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var cursor HistoryCursor
	if _, err := fmt.Sscanf(decodedParts[0], "%d", &cursor.UserID); err != nil {
		return nil, fmt.Errorf("invalid user in cursor: %w", err)
	}
	if _, err := fmt.Sscanf(decodedParts[1], "%d", &cursor.Page); err != nil {
		return nil, fmt.Errorf("invalid page in cursor: %w", err)
	}
	if cursor.Page < 1 {
		return nil, fmt.Errorf("invalid page in cursor: %d", cursor.Page)
	}

	return &cursor, nil
}

func EncodeHistoryCursor(cursor *HistoryCursor) string {
	cs := fmt.Sprintf("%d|%d", cursor.UserID, cursor.Page)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
