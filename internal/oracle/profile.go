package oracle

import (
	"os"

	"ddebug/internal/diag"
)

// Profile is the default build invocation for a language.
type Profile struct {
	Command []string
	Env     []string
	Format  diag.Format
}

// DefaultProfile returns the build command used when none is configured for
// lang ("rust" or "go"; anything else gets the cargo profile).
func DefaultProfile(lang string) Profile {
	switch lang {
	case "go":
		return Profile{
			Command: []string{"go", "build", "-o", os.DevNull, "./..."},
			Format:  diag.FormatGo,
		}
	default:
		return Profile{
			Command: []string{"cargo", "check", "--message-format=json"},
			Env:     []string{"CARGO_TARGET_DIR={cache}"},
			Format:  diag.FormatCargoJSON,
		}
	}
}
