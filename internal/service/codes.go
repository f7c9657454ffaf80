package service

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeGenerator returns a candidate human-readable code. Callers check it for
// uniqueness and ask again on collision.
type CodeGenerator func(now time.Time) string

const maxCodeAttempts = 5

// OrderCode yields OD<yyyymmdd>-<nnnn>.
func OrderCode(now time.Time) string {
	return fmt.Sprintf("OD%s-%04d", now.UTC().Format("20060102"), rand.IntN(10000))
}

// SessionCode yields PM<yyyymmdd>-<8 hex>, used as vnp_TxnRef.
func SessionCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "PM" + now.UTC().Format("20060102") + "-" + suffix
}
