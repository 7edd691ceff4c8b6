package browser

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"ui_harness/domain/interfaces"
)

// Backend names accepted by NewLauncher
const (
	BackendPlaywright = "playwright"
	BackendSelenium   = "selenium"
)

// NewLauncher - selects the browser automation backend by name
func NewLauncher(backend string, selenium SeleniumConfig, logger *logrus.Logger) (interfaces.Launcher, error) {
	switch backend {
	case "", BackendPlaywright:
		return NewPlaywrightLauncher(logger), nil
	case BackendSelenium:
		return NewSeleniumLauncher(selenium, logger), nil
	}
	return nil, fmt.Errorf("unknown browser backend %q (want %s or %s)", backend, BackendPlaywright, BackendSelenium)
}
