package expand

import (
	"fmt"
	"strings"
)

// FlagCycleError reports flags whose definitions refer to each other.
// Path starts and ends with the same flag.
type FlagCycleError struct {
	Path []string
}

func (e *FlagCycleError) Error() string {
	return fmt.Sprintf("flag reference cycle: %s", strings.Join(e.Path, " -> "))
}
