package scenarios

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ui_harness/application/capture"
	"ui_harness/application/executor"
	"ui_harness/domain/entities"
	"ui_harness/infrastructure/browser/fake"
)

func runOn(t *testing.T, site *fake.Site, sc entities.Scenario) (entities.ScenarioResult, *fake.Browser, string) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()
	b := fake.NewBrowser(site)

	opts := executor.DefaultOptions()
	opts.Session.BaseURL = "http://localhost:3000"
	opts.LocateTimeout = 300 * time.Millisecond
	opts.ActionTimeout = 300 * time.Millisecond
	opts.WaitTimeout = 300 * time.Millisecond

	exec := executor.NewExecutor(b, capture.NewCapturer(dir, logger), logger, opts)
	return exec.Run(context.Background(), sc), b, dir
}

func TestBuiltin_AreValid(t *testing.T) {
	names := map[string]bool{}
	for _, sc := range Builtin() {
		assert.NoError(t, sc.Validate(), sc.Name)
		assert.False(t, names[sc.Name], "duplicate %s", sc.Name)
		names[sc.Name] = true
	}
	assert.Len(t, names, 6)
}

func TestBuiltin_PassOnReferenceSite(t *testing.T) {
	tests := []struct {
		scenario  entities.Scenario
		artifacts []string
	}{
		{DemoModal(), []string{"verification/demo_modal_form.png", "verification/demo_modal_success.png"}},
		{LoginUX(), []string{"verification_login_ux.png"}},
		{MobileMenu(), []string{"debug_initial.png", "verification_a11y.png"}},
		{AuthDialog(), []string{"verification/dialog_accessible.png"}},
		{ScanResults(), []string{"verification/scan_results_modal.png"}},
		{LoginForm(), []string{"verification/login_form.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.scenario.Name, func(t *testing.T) {
			res, b, dir := runOn(t, fake.ReferenceSite(fake.SiteOptions{}), tt.scenario)

			require.True(t, res.Passed(), "failure: %+v", res.Failure)
			want := make([]string, len(tt.artifacts))
			for i, a := range tt.artifacts {
				want[i] = filepath.Join(dir, a)
				assert.FileExists(t, want[i])
			}
			assert.Equal(t, want, res.Artifacts)
			assert.Len(t, res.Log, len(tt.scenario.Steps))
			assert.Equal(t, 1, b.CloseCalls())
		})
	}
}

func TestDemoModal_FillsLabelledFields(t *testing.T) {
	site := fake.ReferenceSite(fake.SiteOptions{SuccessDelay: 100 * time.Millisecond})
	res, b, _ := runOn(t, site, DemoModal())

	require.True(t, res.Passed(), "failure: %+v", res.Failure)
	page := b.LastPage()
	assert.Equal(t, "Test User", page.Value("demo-name"))
	assert.Equal(t, "Test Company", page.Value("demo-company"))
	assert.Equal(t, "test@example.com", page.Value("demo-email"))
}

func TestDemoModal_SlowConfirmationTimesOut(t *testing.T) {
	sc := DemoModal()
	sc.Steps[8].Timeout = 50 * time.Millisecond
	site := fake.ReferenceSite(fake.SiteOptions{SuccessDelay: time.Second})

	res, _, dir := runOn(t, site, sc)

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureWaitTimeout, res.Failure.Kind)
	assert.Equal(t, 8, res.Failure.StepIndex)
	assert.Equal(t, []string{
		filepath.Join(dir, "verification/demo_modal_form.png"),
		filepath.Join(dir, "verification/error.png"),
	}, res.Artifacts)
}

func TestMobileMenu_MissingLabel(t *testing.T) {
	site := fake.ReferenceSite(fake.SiteOptions{NoMenuLabel: true})
	res, b, dir := runOn(t, site, MobileMenu())

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureElementNotFound, res.Failure.Kind)
	assert.Equal(t, 2, res.Failure.StepIndex)
	assert.Equal(t, []string{
		filepath.Join(dir, "debug_initial.png"),
		filepath.Join(dir, "error_state.png"),
	}, res.Artifacts)
	assert.FileExists(t, filepath.Join(dir, "error_state.png"))
	assert.Equal(t, entities.MobileViewport, b.LastPage().Viewport())
	assert.Equal(t, 1, b.CloseCalls())
}

func TestAuthDialog_MissingRole(t *testing.T) {
	site := fake.ReferenceSite(fake.SiteOptions{NoDialogRole: true})
	res, _, _ := runOn(t, site, AuthDialog())

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureElementNotFound, res.Failure.Kind)
	assert.Equal(t, 3, res.Failure.StepIndex)
	assert.Equal(t, "dialog container has role=dialog", res.Failure.StepDescription)
}

func TestAuthDialog_MissingCloseLabel(t *testing.T) {
	site := fake.ReferenceSite(fake.SiteOptions{NoCloseLabel: true})
	res, b, dir := runOn(t, site, AuthDialog())

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureElementNotFound, res.Failure.Kind)
	assert.Equal(t, 6, res.Failure.StepIndex)
	assert.Equal(t, "dialog has a close control labelled Dialog schließen", res.Failure.StepDescription)
	assert.Equal(t, []string{
		filepath.Join(dir, "verification/dialog_accessible.png"),
		filepath.Join(dir, "auth_dialog_failure.png"),
	}, res.Artifacts)
	assert.FileExists(t, filepath.Join(dir, "auth_dialog_failure.png"))
	assert.Equal(t, entities.StateFailed, res.FinalState)
	assert.Equal(t, 1, b.CloseCalls())
}

func TestZeroDialogsIsACountNotALookupFailure(t *testing.T) {
	sc := entities.Scenario{
		Name: "count_dialogs",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Wait(entities.CountAtLeast(entities.ByRole("dialog", ""), 1), 50*time.Millisecond),
		},
	}
	res, _, _ := runOn(t, fake.ReferenceSite(fake.SiteOptions{}), sc)

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureWaitTimeout, res.Failure.Kind)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"demo_modal", "login_ux", "mobile_menu", "auth_dialog", "scan_results", "login_form"}, r.Names())

	sc, ok := r.Lookup("login_ux")
	require.True(t, ok)
	assert.Equal(t, "login_ux", sc.Name)

	custom := entities.Scenario{Name: "login_ux", Steps: []entities.Step{entities.Navigate("/")}}
	r.Add(custom)
	assert.Len(t, r.Names(), 6)
	sc, _ = r.Lookup("login_ux")
	assert.Len(t, sc.Steps, 1)

	selected, unknown := r.Select([]string{"mobile_menu", "zzz", "demo_modal", "aaa"})
	require.Len(t, selected, 2)
	assert.Equal(t, "mobile_menu", selected[0].Name)
	assert.Equal(t, "demo_modal", selected[1].Name)
	assert.Equal(t, []string{"aaa", "zzz"}, unknown)

	all, unknown := r.Select(nil)
	assert.Len(t, all, 6)
	assert.Empty(t, unknown)
}
