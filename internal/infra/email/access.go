package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type AccessItem struct {
	Name        string
	DownloadURL string
}

// AccessEmail is the message sent once a digital purchase is recorded.
type AccessEmail struct {
	Items      []AccessItem
	SuccessURL string
}

const accessSubject = "Your downloads are ready"

var accessHTML = htmltemplate.Must(htmltemplate.New("access.html").Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif">
  <h2>Thanks for your purchase!</h2>
  <p>You now have access to:</p>
  <ul>
  {{- range .Items}}
    <li>{{if .DownloadURL}}<a href="{{.DownloadURL}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</li>
  {{- end}}
  </ul>
  <p><a href="{{.SuccessURL}}">View your order and downloads</a></p>
</body>
</html>
`))

var accessText = texttemplate.Must(texttemplate.New("access.txt").Parse(`Thanks for your purchase!

You now have access to:
{{range .Items}}- {{.Name}}{{if .DownloadURL}}: {{.DownloadURL}}{{end}}
{{end}}
View your order and downloads: {{.SuccessURL}}
`))

// RenderAccess builds the access email for one recipient.
func RenderAccess(to string, data AccessEmail) (Message, error) {
	var html, text bytes.Buffer
	if err := accessHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render access email html: %w", err)
	}
	if err := accessText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render access email text: %w", err)
	}

	return Message{
		To:      strings.TrimSpace(to),
		Subject: accessSubject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
