package executor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ui_harness/application/capture"
	"ui_harness/application/executor"
	"ui_harness/domain/entities"
	"ui_harness/infrastructure/browser/fake"
)

const baseURL = "http://app.test"

type harness struct {
	exec    *executor.Executor
	browser *fake.Browser
	dir     string
	hook    *test.Hook
}

func newHarness(t *testing.T, routes map[string]fake.Route, options ...executor.Option) *harness {
	t.Helper()
	dir := t.TempDir()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	b := fake.NewBrowser(&fake.Site{Routes: routes})
	opts := executor.Options{
		Session: entities.SessionOptions{
			BaseURL:  baseURL,
			Viewport: entities.DesktopViewport,
			Headless: true,
		},
		NavigationTimeout: time.Second,
		LocateTimeout:     300 * time.Millisecond,
		ActionTimeout:     300 * time.Millisecond,
		WaitTimeout:       300 * time.Millisecond,
	}
	return &harness{
		exec:    executor.NewExecutor(b, capture.NewCapturer(dir, logger), logger, opts, options...),
		browser: b,
		dir:     dir,
		hook:    hook,
	}
}

func page(build func() *fake.Node) map[string]fake.Route {
	return map[string]fake.Route{"/": {Title: "Start", Build: build}}
}

func TestRun_AllStepsPass(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body",
			fake.Input("email", "email", "E-Mail"),
			fake.Button("Öffnen").Clicked(func(p *fake.Page) {
				p.Later(30*time.Millisecond, func(doc *fake.Node) {
					doc.ByID("app").Append(fake.Textf("Geöffnet"))
				})
			}),
		).ID("app")
	}))

	sc := entities.Scenario{
		Name: "opens",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Fill(entities.ByLabel("E-Mail"), "a@b.test"),
			entities.Click(entities.ByRole("button", "Öffnen")),
			entities.Wait(entities.Visible(entities.ByText("Geöffnet")), time.Second),
			entities.Capture("shots/done.png"),
		},
	}

	res := h.exec.Run(context.Background(), sc)

	require.True(t, res.Passed(), "failure: %+v", res.Failure)
	assert.Nil(t, res.Failure)
	assert.Equal(t, "opens", res.Scenario)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{
		"navigate to /",
		`fill label "E-Mail" with "a@b.test"`,
		`click button "Öffnen"`,
		`wait until text "Geöffnet" is visible`,
		"capture shots/done.png",
	}, res.Log)
	assert.Equal(t, []string{filepath.Join(h.dir, "shots", "done.png")}, res.Artifacts)
	assert.FileExists(t, filepath.Join(h.dir, "shots", "done.png"))
	assert.Equal(t, entities.StateClosed, res.FinalState)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))

	pg := h.browser.LastPage()
	assert.Equal(t, "a@b.test", pg.Value("email"))
	info, err := pg.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, baseURL+"/", info.URL)

	assert.Equal(t, 1, h.browser.Opened())
	assert.Equal(t, 1, h.browser.CloseCalls())
	assert.True(t, pg.Closed())
}

func TestRun_HaltsOnFirstFailure(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.Button("Weiter"))
	}))

	sc := entities.Scenario{
		Name: "halts",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.ByRole("button", "Fehlt")),
			entities.Click(entities.ByRole("button", "Weiter")),
			entities.Capture("never.png"),
		},
	}

	res := h.exec.Run(context.Background(), sc)

	require.False(t, res.Passed())
	require.NotNil(t, res.Failure)
	assert.Equal(t, entities.FailureElementNotFound, res.Failure.Kind)
	assert.Equal(t, 1, res.Failure.StepIndex)
	assert.Equal(t, `click button "Fehlt"`, res.Failure.StepDescription)
	assert.Contains(t, res.Failure.Reason, `button "Fehlt"`)
	assert.Equal(t, []string{"navigate to /", `click button "Fehlt"`}, res.Log)

	diagnostic := filepath.Join(h.dir, "halts_failure.png")
	assert.Equal(t, []string{diagnostic}, res.Artifacts)
	assert.FileExists(t, diagnostic)
	assert.NoFileExists(t, filepath.Join(h.dir, "never.png"))

	assert.Equal(t, entities.StateFailed, res.FinalState)
	assert.Equal(t, 1, h.browser.CloseCalls())
}

func TestRun_CustomFailureScreenshot(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node { return fake.El("body") }))

	sc := entities.Scenario{
		Name:              "custom",
		FailureScreenshot: "verification/error.png",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Locate("missing", entities.ByText("Nirgends")),
		},
	}

	res := h.exec.Run(context.Background(), sc)

	require.False(t, res.Passed())
	assert.Equal(t, []string{filepath.Join(h.dir, "verification", "error.png")}, res.Artifacts)
}

func TestRun_NavigationTimeout(t *testing.T) {
	h := newHarness(t, map[string]fake.Route{
		"/slow": {Title: "Slow", Delay: 500 * time.Millisecond, Build: func() *fake.Node { return fake.El("body") }},
	})

	nav := entities.Navigate("/slow")
	nav.Timeout = 50 * time.Millisecond
	res := h.exec.Run(context.Background(), entities.Scenario{Name: "slow", Steps: []entities.Step{nav}})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureNavigationTimeout, res.Failure.Kind)
	assert.Equal(t, 0, res.Failure.StepIndex)
	assert.Less(t, res.Duration(), 400*time.Millisecond)
	assert.Equal(t, 1, h.browser.CloseCalls())
}

func TestRun_UnreachableSite(t *testing.T) {
	h := newHarness(t, nil)
	h.browser.Site.Unreachable = true

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name:  "down",
		Steps: []entities.Step{entities.Navigate("/")},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureNavigationTimeout, res.Failure.Kind)
	assert.Contains(t, res.Failure.Reason, "ERR_CONNECTION_REFUSED")
}

func TestRun_SessionFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.browser.FailOpen = errors.New("chromium not installed")

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name:  "no_browser",
		Steps: []entities.Step{entities.Navigate("/")},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureSession, res.Failure.Kind)
	assert.Equal(t, -1, res.Failure.StepIndex)
	assert.Contains(t, res.Failure.Reason, "chromium not installed")
	assert.Empty(t, res.Log)
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, entities.StateFailed, res.FinalState)
	assert.Equal(t, 0, h.browser.CloseCalls())
}

func TestRun_InvalidScenarioNeverOpensSession(t *testing.T) {
	h := newHarness(t, nil)

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name:  "bad_ref",
		Steps: []entities.Step{entities.Click(entities.Ref("nope"))},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureUnexpected, res.Failure.Kind)
	assert.Contains(t, res.Failure.Reason, "@nope")
	assert.Equal(t, 0, h.browser.Opened())
}

func TestRun_AmbiguousMatchFailsFast(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.Button("Senden"), fake.Button("Senden"))
	}))

	locate := entities.Locate("send", entities.Query{Role: "button", Name: "Senden", Unique: true})
	locate.Timeout = 2 * time.Second
	res := h.exec.Run(context.Background(), entities.Scenario{
		Name:  "ambiguous",
		Steps: []entities.Step{entities.Navigate("/"), locate},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureAmbiguousMatch, res.Failure.Kind)
	assert.Contains(t, res.Failure.Reason, "2 elements")
	assert.Less(t, res.Duration(), time.Second)
}

func TestRun_IndexPicksAmongMatches(t *testing.T) {
	var clicked string
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body",
			fake.Button("Senden").Clicked(func(*fake.Page) { clicked = "first" }),
			fake.Button("Senden").Clicked(func(*fake.Page) { clicked = "second" }),
		)
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "indexed",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.Query{Role: "button", Name: "Senden", Unique: true}.WithIndex(1)),
		},
	})

	require.True(t, res.Passed(), "failure: %+v", res.Failure)
	assert.Equal(t, "second", clicked)
}

func TestRun_DisabledTargetIsNotInteractable(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.Button("Senden").Disable())
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "disabled",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.ByRole("button", "Senden")),
		},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureElementNotInteractable, res.Failure.Kind)
	assert.Contains(t, res.Failure.Reason, "still disabled")
}

func TestRun_HiddenTargetIsNotInteractable(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.Button("Später").ID("later").Hide())
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "hidden",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.BySelector("#later")),
		},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureElementNotInteractable, res.Failure.Kind)
	assert.Contains(t, res.Failure.Reason, "still hidden")
}

func TestRun_TargetBecomesEnabled(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body",
			fake.Button("Laden").Clicked(func(p *fake.Page) {
				p.Later(50*time.Millisecond, func(doc *fake.Node) { doc.ByID("go").Disabled = false })
			}),
			fake.Button("Los").ID("go").Disable(),
		)
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "enables",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.ByRole("button", "Laden")),
			entities.Click(entities.ByRole("button", "Los")),
		},
	})

	assert.True(t, res.Passed(), "failure: %+v", res.Failure)
}

func TestRun_StepTimeoutBoundsInlineTargetLookup(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		passes  bool
	}{
		{"default locate timeout", 0, false},
		{"step timeout", 2 * time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, page(func() *fake.Node {
				return fake.El("body",
					fake.Button("Laden").Clicked(func(p *fake.Page) {
						p.Later(500*time.Millisecond, func(doc *fake.Node) { doc.Append(fake.Button("Spät")) })
					}),
				)
			}))

			late := entities.Click(entities.ByRole("button", "Spät"))
			late.Timeout = tt.timeout
			res := h.exec.Run(context.Background(), entities.Scenario{
				Name: "late_target",
				Steps: []entities.Step{
					entities.Navigate("/"),
					entities.Click(entities.ByRole("button", "Laden")),
					late,
				},
			})

			if tt.passes {
				assert.True(t, res.Passed(), "failure: %+v", res.Failure)
				return
			}
			require.False(t, res.Passed())
			assert.Equal(t, entities.FailureElementNotFound, res.Failure.Kind)
			assert.Equal(t, 2, res.Failure.StepIndex)
		})
	}
}

func TestRun_StaleRefIsNotInteractable(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		body := fake.El("body").ID("app")
		body.Append(fake.Button("Weg").ID("gone").Clicked(func(p *fake.Page) {
			p.Mutate(func(doc *fake.Node) { doc.ByID("app").Remove(doc.ByID("gone")) })
		}))
		return body
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "stale",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Locate("btn", entities.ByRole("button", "Weg")),
			entities.Click(entities.Ref("btn")),
			entities.Click(entities.Ref("btn")),
		},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureElementNotInteractable, res.Failure.Kind)
	assert.Equal(t, 3, res.Failure.StepIndex)
	assert.Contains(t, res.Failure.Reason, "still detached")
}

func TestRun_WaitTimeout(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node { return fake.El("body") }))

	start := time.Now()
	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "never",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Wait(entities.Visible(entities.ByText("Nie")), 100*time.Millisecond),
		},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureWaitTimeout, res.Failure.Kind)
	assert.Equal(t, `wait until text "Nie" is visible`, res.Failure.StepDescription)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestRun_WaitConditions(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body",
			fake.Button("Menü").ID("menu").Attr("aria-expanded", "false").Clicked(func(p *fake.Page) {
				p.Mutate(func(doc *fake.Node) { doc.ByID("menu").Attr("aria-expanded", "true") })
			}),
			fake.El("ul", fake.El("li", fake.Textf("A")), fake.El("li", fake.Textf("B"))),
			fake.Textf("Status: 3 Befunde").ID("status"),
		)
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "conditions",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Wait(entities.AttributeEquals(entities.BySelector("#menu"), "aria-expanded", "false"), 0),
			entities.Click(entities.BySelector("#menu")),
			entities.Wait(entities.AttributeEquals(entities.BySelector("#menu"), "aria-expanded", "true"), 0),
			entities.Wait(entities.CountAtLeast(entities.BySelector("li"), 2), 0),
			entities.Wait(entities.TextMatches(entities.BySelector("#status"), `\d+ Befunde`), 0),
		},
	})

	assert.True(t, res.Passed(), "failure: %+v", res.Failure)
}

func TestRun_PanicBecomesUnexpectedFault(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.Button("Boom").Clicked(func(*fake.Page) { panic("kaputt") }))
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "panics",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.ByRole("button", "Boom")),
		},
	})

	require.False(t, res.Passed())
	assert.Equal(t, entities.FailureUnexpected, res.Failure.Kind)
	assert.Contains(t, res.Failure.Reason, "kaputt")
	assert.Equal(t, 1, h.browser.CloseCalls())
	assert.Len(t, res.Artifacts, 1)
}

func TestRun_CaptureFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node { return fake.El("body") }))
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "blocker"), []byte("file"), 0644))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "unwritable",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Capture("blocker/shot.png"),
			entities.Capture("ok.png"),
		},
	})

	require.True(t, res.Passed(), "failure: %+v", res.Failure)
	assert.Equal(t, []string{filepath.Join(h.dir, "ok.png")}, res.Artifacts)

	warned := false
	for _, entry := range h.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned, "capture failure should be logged")
}

func TestRun_ElementCapture(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.El("form", fake.Input("q", "text", "Suche")))
	}))

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name: "element_shot",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.CaptureElement("form.png", entities.BySelector("form")),
			entities.CaptureElement("missing.png", entities.BySelector("table")),
		},
	})

	require.True(t, res.Passed(), "failure: %+v", res.Failure)
	assert.Equal(t, []string{filepath.Join(h.dir, "form.png")}, res.Artifacts)
}

func TestRun_IsRepeatable(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node {
		return fake.El("body", fake.Button("Weiter"))
	}))
	sc := entities.Scenario{
		Name: "twice",
		Steps: []entities.Step{
			entities.Navigate("/"),
			entities.Click(entities.ByRole("button", "Weiter")),
			entities.Click(entities.ByRole("button", "Zurück")),
		},
	}

	first := h.exec.Run(context.Background(), sc)
	second := h.exec.Run(context.Background(), sc)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Log, second.Log)
	assert.Equal(t, first.Failure.Kind, second.Failure.Kind)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 2, h.browser.Opened())
	assert.Equal(t, 2, h.browser.CloseCalls())
}

func TestRun_Viewports(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node { return fake.El("body") }))

	mobile := entities.MobileViewport
	res := h.exec.Run(context.Background(), entities.Scenario{
		Name:     "mobile",
		Viewport: &mobile,
		Steps:    []entities.Step{entities.Navigate("/")},
	})
	require.True(t, res.Passed())
	assert.Equal(t, entities.MobileViewport, h.browser.LastPage().Viewport())

	res = h.exec.Run(context.Background(), entities.Scenario{
		Name:  "resized",
		Steps: []entities.Step{entities.Navigate("/"), entities.SetViewport(800, 600)},
	})
	require.True(t, res.Passed())
	assert.Equal(t, entities.Viewport{Width: 800, Height: 600}, h.browser.LastPage().Viewport())
}

func TestRunAll_SeparateSessions(t *testing.T) {
	h := newHarness(t, page(func() *fake.Node { return fake.El("body", fake.Button("Weiter")) }))

	results := h.exec.RunAll(context.Background(), []entities.Scenario{
		{Name: "one", Steps: []entities.Step{entities.Navigate("/")}},
		{Name: "two", Steps: []entities.Step{entities.Navigate("/"), entities.Click(entities.ByRole("button", "Fehlt"))}},
		{Name: "three", Steps: []entities.Step{entities.Navigate("/")}},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Passed())
	assert.False(t, results[1].Passed())
	assert.True(t, results[2].Passed())
	assert.Equal(t, 3, h.browser.Opened())
	assert.Equal(t, 3, h.browser.CloseCalls())
}

type recordingReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingReporter) ScenarioStarted(sc entities.Scenario) { r.add("start " + sc.Name) }

func (r *recordingReporter) StepStarted(i int, s entities.Step) { r.add("step " + s.Describe()) }

func (r *recordingReporter) ArtifactSaved(path string) { r.add("artifact " + filepath.Base(path)) }

func (r *recordingReporter) ScenarioFinished(res entities.ScenarioResult) {
	r.add("finish " + string(res.Status))
}

type memoryHistory struct {
	results []entities.ScenarioResult
}

func (m *memoryHistory) Append(res entities.ScenarioResult) error {
	m.results = append(m.results, res)
	return nil
}

func (m *memoryHistory) Load() ([]entities.ScenarioResult, error) {
	return m.results, nil
}

func TestRun_ReportsProgressAndHistory(t *testing.T) {
	reporter := &recordingReporter{}
	history := &memoryHistory{}
	h := newHarness(t, page(func() *fake.Node { return fake.El("body") }),
		executor.WithReporter(reporter),
		executor.WithHistory(history),
		executor.WithIDGenerator(func() string { return "run-1" }),
	)

	res := h.exec.Run(context.Background(), entities.Scenario{
		Name:  "reported",
		Steps: []entities.Step{entities.Navigate("/"), entities.Capture("page.png")},
	})

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, []string{
		"start reported",
		"step navigate to /",
		"step capture page.png",
		"artifact page.png",
		"finish success",
	}, reporter.events)
	require.Len(t, history.results, 1)
	assert.Equal(t, res, history.results[0])
}
