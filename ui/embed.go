// SPDX-License-Identifier: MIT
//
// Embed assets of the configuration page.
//

package ui

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"sync"

	"captiveportal/log"
)

//go:embed static template/*.tmpl
var content embed.FS

var (
	templates     *template.Template
	templatesOnce sync.Once
)

func ServeStatic() http.Handler {
	staticFS, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(staticFS))
}

var funcs = template.FuncMap{
	// Signal strength in bars, 0-4.
	"bars": func(rssi int8) int {
		switch {
		case rssi >= -55:
			return 4
		case rssi >= -67:
			return 3
		case rssi >= -75:
			return 2
		case rssi >= -85:
			return 1
		default:
			return 0
		}
	},
}

func GetTemplate(name string) *template.Template {
	templatesOnce.Do(func() {
		templates = template.Must(template.New("").Funcs(funcs).
			ParseFS(content, "template/*.tmpl"))
		tt := []string{}
		for _, t := range templates.Templates() {
			tt = append(tt, t.Name())
		}
		log.Infof("parsed templates: %+v", tt)
	})

	return templates.Lookup(name)
}
