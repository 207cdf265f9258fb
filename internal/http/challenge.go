package httpx

import (
	"html/template"
	"net/http"
)

// challengeTemplate is the password prompt served when a protected
// directory allows simple-password access. It posts back to the password
// endpoint with the originally requested path.
var challengeTemplate = template.Must(template.New("challenge").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Protected content</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; justify-content: center; padding-top: 10vh; }
form { max-width: 22rem; }
input[type=password] { width: 100%; padding: .5rem; margin: .5rem 0; }
button { padding: .5rem 1.5rem; }
.error { color: #b00020; }
</style>
</head>
<body>
<form method="post" action="/auth/password">
<h1>Protected content</h1>
<p>This content requires a password.</p>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<input type="hidden" name="path" value="{{.Path}}">
<label>Password <input type="password" name="password" autofocus autocomplete="off"></label>
<button type="submit">Unlock</button>
</form>
</body>
</html>
`))

type challengeData struct {
	Path  string
	Error string
}

// writeChallenge renders the password prompt. API clients get a JSON
// challenge instead of HTML.
func writeChallenge(w http.ResponseWriter, r *http.Request, data challengeData) {
	if !acceptsHTML(r) {
		body := map[string]string{"error": "challenge", "path": data.Path}
		if data.Error != "" {
			body["message"] = data.Error
		}
		WriteJSON(w, http.StatusUnauthorized, body)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	if err := challengeTemplate.Execute(w, data); err != nil {
		// Headers are already sent; nothing more to do.
		return
	}
}
