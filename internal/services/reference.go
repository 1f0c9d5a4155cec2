package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateBookingReference creates a reference like BL-20250101-A1B2C3D4
func GenerateBookingReference(now time.Time) (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate booking reference: %w", err)
	}
	return fmt.Sprintf("BL-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(bytes))), nil
}
