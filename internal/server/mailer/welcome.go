package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <body>
    <h1>Welcome to {{.Project}}, {{.Name}}!</h1>
    <p>Your account is ready. Sign in with this email address and the password you chose.</p>
  </body>
</html>
`))

// WelcomeMessage renders the signup greeting. Name is HTML-escaped.
func WelcomeMessage(to, name, project string) (Message, error) {
	if project == "" {
		project = "accountsvc"
	}

	var body bytes.Buffer
	err := welcomeTemplate.Execute(&body, struct{ Name, Project string }{Name: name, Project: project})
	if err != nil {
		return Message{}, fmt.Errorf("rendering welcome email: %w", err)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Welcome to %s", project),
		HTML:    body.String(),
	}, nil
}
