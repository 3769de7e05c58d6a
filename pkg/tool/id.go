package tool

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateMerchantRef builds a human-readable, unique merchant reference for
// one payment attempt, e.g. "PGT-20250131-9F3A2C1B". The gateway echoes it
// back alongside the tracking id, so it must stay alphanumeric-plus-hyphen.
func GenerateMerchantRef(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("PGT-%s-%s", now.UTC().Format("20060102"), suffix)
}
