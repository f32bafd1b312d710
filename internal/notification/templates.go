package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateSubmitted = "application_submitted"
	templateReviewed  = "application_reviewed"
	templateAccepted  = "application_accepted"
	templateWelcome   = "welcome"
)

// Subjects are user facing and stay in French.
const (
	subjectSubmitted = "Nouvelle candidature sur votre opportunité \"%s\""
	subjectReviewed  = "Votre candidature pour \"%s\" a été revue"
	subjectAccepted  = "Bonne nouvelle pour votre candidature \"%s\""
	subjectWelcome   = "Bienvenue sur D-Fund"
)

type templateData struct {
	Subject          string
	RecipientName    string
	CandidateName    string
	OpportunityName  string
	ApplicationTitle string
	FeedbackTitle    string
	ReviewFeedback   string
}

type renderer struct {
	templates map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{templates: map[string]*template.Template{}}
	for _, name := range []string{templateSubmitted, templateReviewed, templateAccepted, templateWelcome} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

func (r *renderer) render(name string, data templateData) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %s", name)
	}
	var body bytes.Buffer
	if err := t.ExecuteTemplate(&body, "layout", data); err != nil {
		return "", err
	}
	return body.String(), nil
}
