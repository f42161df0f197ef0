package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/ec_plotter_go/internal/config"
)

// OutputPath picks the figure destination for threshold t: the first rule
// whose threshold equals t, otherwise the default template. "{T}" in the
// chosen template is replaced by the formatted threshold.
func OutputPath(out config.Outputs, t float64) string {
	tmpl := out.Default
	for _, r := range out.Rules {
		if r.Threshold == t {
			tmpl = r.Path
			break
		}
	}
	return strings.ReplaceAll(tmpl, "{T}", config.FormatThreshold(t))
}

// SummaryPath expands "{ensemble}" in the summary sheet template.
func SummaryPath(s config.Summary, ensemble string) string {
	return strings.ReplaceAll(s.Path, "{ensemble}", ensemble)
}

// ensureParent creates the directory that will hold path.
func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
