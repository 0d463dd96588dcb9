package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// NoticeTemplate is a parsed subject, plain text body and HTML body
type NoticeTemplate struct {
	Subject string
	Text    *texttemplate.Template
	Html    *htmltemplate.Template
}

var subjects = map[NoticeType]string{
	TwoFactorCodeNotice: "Settle Space - Verification Code",
	WelcomeNotice:       "Welcome to Settle Space!",
}

// LoadTemplates parses the embedded templates of every notice type
func LoadTemplates() (map[NoticeType]NoticeTemplate, error) {
	out := make(map[NoticeType]NoticeTemplate, len(subjects))
	for noticeType, subject := range subjects {
		name := string(noticeType)

		text, err := texttemplate.New(name+".txt").Option("missingkey=zero").ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}
		html, err := htmltemplate.New(name+".html").Option("missingkey=zero").ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse html template %s: %w", name, err)
		}
		out[noticeType] = NoticeTemplate{Subject: subject, Text: text, Html: html}
	}
	return out, nil
}

// Render executes both bodies with data
func (t NoticeTemplate) Render(data map[string]string) (text string, html string, err error) {
	var tb, hb bytes.Buffer
	if err := t.Text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	if err := t.Html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	return tb.String(), hb.String(), nil
}
