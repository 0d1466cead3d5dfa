package unabto

import (
	"fmt"

	"github.com/TheusHen/unabto-go/unabto/stack"
)

// Version returns the implemented stack release as "<major>.<minor>".
func Version() string {
	return fmt.Sprintf("%d.%d", stack.ReleaseMajor, stack.ReleaseMinor)
}
