package handlers

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"strconv"
)

//go:embed openapi.yaml
var openapiSpec []byte

var docsTmpl = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} API Docs</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <link rel="stylesheet" href="{{.Assets}}/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui" data-spec="{{.SpecURL}}"></div>
  <script src="{{.Assets}}/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: document.getElementById("swagger-ui").dataset.spec,
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
      deepLinking: true,
      persistAuthorization: true,
    });
  </script>
</body>
</html>`))

// docsPage is rendered once; its inputs are fixed.
var docsPage = func() []byte {
	var buf bytes.Buffer
	err := docsTmpl.Execute(&buf, struct {
		Title, Assets, SpecURL string
	}{"logsheet", "https://unpkg.com/swagger-ui-dist@5", "/openapi.yaml"})
	if err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

// OpenAPISpec handles GET /openapi.yaml and serves the embedded OpenAPI
// document.
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Length", strconv.Itoa(len(openapiSpec)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(openapiSpec)
}

// Docs handles GET /docs with a Swagger UI page pointed at /openapi.yaml.
func Docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(docsPage)
}
