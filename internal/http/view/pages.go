package view

import (
	"bytes"
	"html/template"
)

// PasswordPageData provides the dynamic fields for the credential prompt.
type PasswordPageData struct {
	ShortCode string
	CodeName  string
	Incorrect bool
}

// ErrorPageData provides the dynamic fields for rejection pages.
type ErrorPageData struct {
	Title   string
	Message string
}

const pageShell = `
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{.Title}}</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--danger: #f87171;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(420px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
			text-align: center;
		}
		h1 { font-size: 1.4rem; margin-bottom: 6px; }
		p { color: var(--muted); margin: 8px 0 20px; }
		.warn { color: var(--danger); }
		input[type=password] {
			width: 100%;
			padding: 10px 12px;
			border-radius: 10px;
			border: 1px solid var(--border);
			background: rgba(0,0,0,0.35);
			color: var(--text);
			margin-bottom: 16px;
		}
		button {
			width: 100%;
			padding: 10px 12px;
			border-radius: 10px;
			border: none;
			background: var(--accent);
			color: #06121f;
			font-weight: 600;
			cursor: pointer;
		}
	</style>
</head>
<body>
	<div class="card">
	{{block "body" .}}{{end}}
	</div>
</body>
</html>`

var passwordPageTmpl = template.Must(template.Must(
	template.New("password_page").Parse(pageShell)).Parse(`
{{define "body"}}
	<h1>Password required</h1>
	{{if .Incorrect}}
	<p class="warn">That password was not correct. Try again.</p>
	{{else}}
	<p>This code is protected. Enter the password to continue.</p>
	{{end}}
	<form method="get" action="/{{.ShortCode}}">
		<input type="password" name="password" placeholder="Password" autofocus required />
		<button type="submit">Continue</button>
	</form>
{{end}}`))

var errorPageTmpl = template.Must(template.Must(
	template.New("error_page").Parse(pageShell)).Parse(`
{{define "body"}}
	<h1>{{.Title}}</h1>
	<p>{{.Message}}</p>
{{end}}`))

// RenderPasswordPage renders the credential prompt for a protected code.
func RenderPasswordPage(data PasswordPageData) (string, error) {
	payload := struct {
		Title string
		PasswordPageData
	}{
		Title:            "Password required",
		PasswordPageData: data,
	}

	var buf bytes.Buffer
	if err := passwordPageTmpl.Execute(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderErrorPage renders a rejection page with a reason-specific message.
func RenderErrorPage(data ErrorPageData) (string, error) {
	var buf bytes.Buffer
	if err := errorPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
