package http

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"husholdning/pkg/contracts"
)

var landingPage = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="no">
<head>
    <meta charset="utf-8">
    <title>Husholdning</title>
    <style>
        body { font-family: Helvetica, Arial, sans-serif; margin: 40px; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1>Husholdning {{.Version}}</h1>
    <p>Running since {{.Started}}</p>
    <ul>
        <li><code>POST /api/v1/sifo</code></li>
        <li><code>GET /api/v1/finn/{finnkode}</code></li>
        <li><code>POST /api/v1/mortgage</code></li>
        <li><code>POST /api/v1/restructure</code></li>
        <li><code>POST /api/v1/tax</code></li>
        <li><code>GET /api/v1/results</code></li>
        <li><a href="/health">/health</a>, <a href="/metrics">/metrics</a>, <code>/ws</code></li>
    </ul>
</body>
</html>
`))

// ServeIndex serves index.html from webDir, or a landing page listing the
// API when the directory has none
func ServeIndex(webDir string) http.HandlerFunc {
	started := time.Now().Format("2006-01-02 15:04:05")
	return func(w http.ResponseWriter, r *http.Request) {
		if webDir != "" {
			indexPath := filepath.Join(webDir, "index.html")
			if _, err := os.Stat(indexPath); err == nil {
				serveHTML(w, indexPath)
				return
			}
		}
		setHTMLHeaders(w)
		_ = landingPage.Execute(w, map[string]string{
			"Version": contracts.Version,
			"Started": started,
		})
	}
}

func setHTMLHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

// serveHTML serves an HTML file with proper headers
func serveHTML(w http.ResponseWriter, filePath string) {
	tmpl, err := template.ParseFiles(filePath)
	if err != nil {
		http.Error(w, "Error loading page", http.StatusInternalServerError)
		return
	}
	setHTMLHeaders(w)
	if err := tmpl.Execute(w, nil); err != nil {
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}
