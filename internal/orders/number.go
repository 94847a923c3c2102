package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateNumber builds a human-facing order number. The date prefix
// keeps numbers sortable for support staff; the uuid suffix avoids a
// counter round-trip and collisions under concurrent checkouts.
// PF-{YY}{MM}-{8 hex}
func GenerateNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PF-%s-%s", at.Format("0601"), suffix)
}
