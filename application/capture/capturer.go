// Package capture writes screenshot checkpoints. Capturing is best-effort:
// failures are classified as ArtifactWriteFailure and never abort a scenario.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// Capturer writes screenshots below an artifact directory
type Capturer struct {
	dir    string
	logger *logrus.Logger
}

// NewCapturer - creates a capturer; relative paths are resolved against dir
func NewCapturer(dir string, logger *logrus.Logger) *Capturer {
	return &Capturer{dir: dir, logger: logger}
}

// Path resolves an artifact path the way Capture does.
func (c *Capturer) Path(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Capture writes a screenshot of the page, or of element when it is not nil,
// and returns the written path. Errors wrap entities.ErrArtifactWrite.
func (c *Capturer) Capture(ctx context.Context, page interfaces.Page, path string, element interfaces.Element, fullPage bool) (string, error) {
	target := c.Path(path)

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", c.fail(target, err)
		}
	}

	var err error
	if element != nil {
		err = element.Screenshot(ctx, target)
	} else {
		err = page.Screenshot(ctx, target, fullPage)
	}
	if err != nil {
		return "", c.fail(target, err)
	}

	c.logger.WithField("path", target).Debug("Screenshot saved")
	return target, nil
}

func (c *Capturer) fail(path string, err error) error {
	c.logger.WithError(err).WithField("path", path).Warn("Failed to write screenshot")
	return fmt.Errorf("%w: %s: %v", entities.ErrArtifactWrite, path, err)
}
