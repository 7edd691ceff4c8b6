// Package scenarios holds the built-in verification scenarios and loads
// additional ones from YAML files.
package scenarios

import (
	"sort"
	"time"

	e "ui_harness/domain/entities"
)

// DemoModal checks that the demo request modal opens, accepts input through
// its labelled fields and confirms the request.
func DemoModal() e.Scenario {
	return e.Scenario{
		Name:              "demo_modal",
		Description:       "Demo request modal opens, accepts labelled input and confirms the request",
		FailureScreenshot: "verification/error.png",
		Steps: []e.Step{
			e.Navigate("/"),
			e.Click(e.ByRole("button", "Demo ansehen")),
			e.Wait(e.Visible(e.ByText("Demo anfordern")), 0),
			e.Fill(e.ByLabel("Name"), "Test User"),
			e.Fill(e.ByLabel("Firma"), "Test Company"),
			e.Fill(e.ByLabel("E-Mail Adresse"), "test@example.com"),
			e.Capture("verification/demo_modal_form.png"),
			e.Click(e.ByRole("button", "Jetzt Demo anfragen")),
			e.Wait(e.Visible(e.ByText("Anfrage gesendet!")), 5*time.Second),
			e.Capture("verification/demo_modal_success.png"),
		},
	}
}

// LoginUX checks the password visibility toggle of the login page.
func LoginUX() e.Scenario {
	password := e.Ref("password")
	return e.Scenario{
		Name:        "login_ux",
		Description: "Password field toggles between masked and plain text with matching labels",
		Steps: []e.Step{
			e.Navigate("/login"),
			e.Locate("password", e.BySelector("#password")),
			e.Wait(e.Visible(password), 0),
			e.Wait(e.AttributeEquals(password, "type", "password"), 0).
				WithDescription("password field starts masked"),
			e.Click(e.ByLabel("Passwort anzeigen")),
			e.Wait(e.AttributeEquals(password, "type", "text"), 0).
				WithDescription("password field is plain text after the toggle"),
			e.Wait(e.Visible(e.ByLabel("Passwort verbergen")), 0).
				WithDescription("toggle is relabelled to hide the password"),
			e.Capture("verification_login_ux.png"),
		},
	}
}

// MobileMenu checks the accessible state of the mobile navigation toggle.
func MobileMenu() e.Scenario {
	viewport := e.MobileViewport
	menu := e.Ref("menu")
	return e.Scenario{
		Name:              "mobile_menu",
		Description:       "Mobile menu button exposes its label and expanded state",
		Viewport:          &viewport,
		FailureScreenshot: "error_state.png",
		Steps: []e.Step{
			e.Navigate("/"),
			e.Capture("debug_initial.png"),
			e.Locate("menu", e.ByLabel("Hauptmenü öffnen")),
			e.Wait(e.Visible(menu), 5*time.Second),
			e.Wait(e.AttributeEquals(menu, "aria-expanded", "false"), 0).
				WithDescription("menu starts collapsed"),
			e.Click(menu),
			e.Wait(e.Visible(e.ByLabel("Menü schließen")), 0).
				WithDescription("menu button is relabelled to close the menu"),
			e.Capture("verification_a11y.png"),
		},
	}
}

// AuthDialog checks the dialog semantics of the sign in modal.
func AuthDialog() e.Scenario {
	dialog := e.Ref("dialog")
	return e.Scenario{
		Name:        "auth_dialog",
		Description: "Sign in modal is an aria-modal dialog with a labelled close control",
		Steps: []e.Step{
			e.Navigate("/"),
			e.Click(e.ByRole("button", "Anmelden").WithIndex(0)),
			e.Wait(e.Visible(e.ByText("Willkommen zurück")), 0),
			e.Locate("dialog", e.Query{Role: "dialog", Unique: true}).
				WithDescription("dialog container has role=dialog"),
			e.Wait(e.AttributeEquals(dialog, "aria-modal", "true"), 0).
				WithDescription("dialog is marked aria-modal"),
			e.Capture("verification/dialog_accessible.png"),
			e.Locate("close", e.Query{Label: "Dialog schließen", Within: &dialog}).
				WithDescription("dialog has a close control labelled Dialog schließen"),
		},
	}
}

// ScanResults checks that a finding's solution dialog opens with a labelled
// close button.
func ScanResults() e.Scenario {
	return e.Scenario{
		Name:        "scan_results",
		Description: "Solution dialog of a scan finding opens with a labelled close button",
		Steps: []e.Step{
			e.Navigate("/verify-scan-results"),
			e.Wait(e.Visible(e.ByText("Verification: ScanResultsClient")), 0),
			e.Click(e.ByRole("button", "Lösung anzeigen").WithIndex(0)),
			e.Wait(e.Visible(e.ByRole("button", "Lösungsweg schließen")), 0),
			e.Capture("verification/scan_results_modal.png"),
		},
	}
}

// LoginForm checks the markup of the login form and captures the form alone.
func LoginForm() e.Scenario {
	return e.Scenario{
		Name:        "login_form",
		Description: "Login form has a labelled password field and a labelled visibility toggle",
		Steps: []e.Step{
			e.Navigate("/login"),
			e.Locate("password", e.BySelector("input#password")),
			e.Wait(e.TextMatches(e.BySelector("label[for='password']"), `\S`), 0).
				WithDescription("password field has a label"),
			e.Wait(e.CountAtLeast(e.BySelector("button[aria-label='Passwort anzeigen']"), 1), 0).
				WithDescription("password toggle has aria-label Passwort anzeigen"),
			e.CaptureElement("verification/login_form.png", e.BySelector("form")),
		},
	}
}

// Builtin returns the built-in scenarios in run order
func Builtin() []e.Scenario {
	return []e.Scenario{
		DemoModal(),
		LoginUX(),
		MobileMenu(),
		AuthDialog(),
		ScanResults(),
		LoginForm(),
	}
}

// Registry indexes scenarios by name
type Registry struct {
	order  []string
	byName map[string]e.Scenario
}

// NewRegistry - creates a registry holding the built-in scenarios
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]e.Scenario)}
	for _, sc := range Builtin() {
		r.Add(sc)
	}
	return r
}

// Add registers sc, replacing a scenario of the same name
func (r *Registry) Add(sc e.Scenario) {
	if _, ok := r.byName[sc.Name]; !ok {
		r.order = append(r.order, sc.Name)
	}
	r.byName[sc.Name] = sc
}

// Lookup returns the scenario registered under name
func (r *Registry) Lookup(name string) (e.Scenario, bool) {
	sc, ok := r.byName[name]
	return sc, ok
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns every scenario in registration order
func (r *Registry) All() []e.Scenario {
	out := make([]e.Scenario, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Select returns the named scenarios in the given order, or every scenario when
// names is empty. Unknown names are returned as the second value, sorted.
func (r *Registry) Select(names []string) ([]e.Scenario, []string) {
	if len(names) == 0 {
		return r.All(), nil
	}
	var (
		out     []e.Scenario
		unknown []string
	)
	for _, name := range names {
		sc, ok := r.byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, sc)
	}
	sort.Strings(unknown)
	return out, unknown
}
