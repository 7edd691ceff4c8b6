package fake

import "time"

// SiteOptions breaks parts of the reference site
type SiteOptions struct {
	// SuccessDelay delays the demo request confirmation.
	SuccessDelay time.Duration
	// NoMenuLabel drops the aria-label of the mobile menu button.
	NoMenuLabel bool
	// NoDialogRole drops role=dialog from the sign in modal.
	NoDialogRole bool
	// NoCloseLabel drops the aria-label of the sign in modal's close button.
	NoCloseLabel bool
}

// ReferenceSite builds the pages of the application the built-in scenarios verify
func ReferenceSite(opts SiteOptions) *Site {
	return &Site{Routes: map[string]Route{
		"/": {
			Title: "Sicherheitsscanner",
			Build: func() *Node { return homePage(opts) },
		},
		"/login": {
			Title: "Anmelden",
			Build: loginPage,
		},
		"/verify-scan-results": {
			Title: "Scan Ergebnisse",
			Build: scanResultsPage,
		},
	}}
}

func homePage(opts SiteOptions) *Node {
	menu := Button("").ID("menu-button").Attr("aria-expanded", "false")
	if !opts.NoMenuLabel {
		menu.Attr("aria-label", "Hauptmenü öffnen")
	}
	menu.OnClick = func(p *Page) {
		p.Mutate(func(doc *Node) {
			b := doc.ByID("menu-button")
			if b.Attrs["aria-expanded"] == "false" {
				b.Attr("aria-expanded", "true").Attr("aria-label", "Menü schließen")
				doc.ByID("mobile-nav").Hidden = false
				return
			}
			b.Attr("aria-expanded", "false").Attr("aria-label", "Hauptmenü öffnen")
			doc.ByID("mobile-nav").Hidden = true
		})
	}

	return El("body",
		El("header",
			Button("Anmelden").Clicked(func(p *Page) {
				p.Mutate(func(doc *Node) { doc.ByID("app").Append(authDialog(opts)) })
			}),
			menu,
			El("nav", &Node{Tag: "a", Text: "Preise"}, &Node{Tag: "a", Text: "Kontakt"}).ID("mobile-nav").Hide(),
		),
		El("main",
			&Node{Tag: "h1", Text: "Sicherheit für Ihre Websites"},
			Button("Demo ansehen").Clicked(func(p *Page) {
				p.Mutate(func(doc *Node) { doc.ByID("app").Append(demoModal(opts)) })
			}),
			Button("Kostenlos anmelden"),
		),
	).ID("app")
}

func demoModal(opts SiteOptions) *Node {
	submit := Button("Jetzt Demo anfragen").Attr("type", "submit")
	submit.OnClick = func(p *Page) {
		p.Later(opts.SuccessDelay, func(doc *Node) {
			modal := doc.ByID("demo-modal")
			modal.Remove(modal.ByID("demo-form"))
			modal.Append(Textf("Anfrage gesendet!"))
		})
	}

	return El("div",
		&Node{Tag: "h2", Text: "Demo anfordern"},
		El("form",
			Input("demo-name", "text", "Name"),
			Input("demo-company", "text", "Firma"),
			Input("demo-email", "email", "E-Mail Adresse"),
			submit,
		).ID("demo-form"),
	).ID("demo-modal").Attr("role", "dialog").Attr("aria-modal", "true")
}

func authDialog(opts SiteOptions) *Node {
	closeButton := Button("×").Clicked(func(p *Page) {
		p.Mutate(func(doc *Node) { doc.ByID("app").Remove(doc.ByID("auth-modal")) })
	})
	if !opts.NoCloseLabel {
		closeButton.Attr("aria-label", "Dialog schließen")
	}
	dialog := El("div",
		&Node{Tag: "h2", Text: "Willkommen zurück"},
		closeButton,
		El("form",
			Input("auth-email", "email", "E-Mail"),
			Input("auth-password", "password", "Passwort"),
			Button("Einloggen").Attr("type", "submit"),
		),
	).ID("auth-modal").Attr("aria-modal", "true")
	if !opts.NoDialogRole {
		dialog.Attr("role", "dialog")
	}
	return dialog
}

func loginPage() *Node {
	toggle := Button("").ID("password-toggle").
		Attr("aria-label", "Passwort anzeigen").
		Attr("class", "absolute right-0 top-0 h-full w-10")
	toggle.OnClick = func(p *Page) {
		p.Mutate(func(doc *Node) {
			field, button := doc.ByID("password"), doc.ByID("password-toggle")
			if field.Attrs["type"] == "password" {
				field.Attr("type", "text")
				button.Attr("aria-label", "Passwort verbergen")
				return
			}
			field.Attr("type", "password")
			button.Attr("aria-label", "Passwort anzeigen")
		})
	}

	return El("body",
		El("main",
			&Node{Tag: "h1", Text: "Anmelden"},
			El("form",
				(&Node{Tag: "label", Text: "E-Mail"}).Attr("for", "email"),
				Input("email", "email", "E-Mail"),
				(&Node{Tag: "label", Text: "Passwort"}).Attr("for", "password"),
				Input("password", "password", "Passwort"),
				toggle,
				Button("Einloggen").Attr("type", "submit"),
			),
		),
	).ID("app")
}

func scanResultsPage() *Node {
	finding := func(title string) *Node {
		return El("li",
			Textf("%s", title),
			Button("Lösung anzeigen").Clicked(func(p *Page) {
				p.Mutate(func(doc *Node) {
					doc.ByID("app").Append(El("div",
						&Node{Tag: "h2", Text: "Lösungsweg"},
						Textf("So beheben Sie: %s", title),
						Button("").Attr("aria-label", "Lösungsweg schließen"),
					).Attr("role", "dialog"))
				})
			}),
		)
	}

	return El("body",
		&Node{Tag: "h1", Text: "Verification: ScanResultsClient"},
		El("ul",
			finding("Fehlende Content-Security-Policy"),
			finding("Cookie ohne Secure-Flag"),
		),
	).ID("app")
}
