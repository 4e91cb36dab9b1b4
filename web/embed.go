// Package web embeds the HTML templates and static assets served by the app.
package web

import "embed"

// TemplatesFS embeds the page templates. Every page is parsed with base.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds css and js.
//
//go:embed static/*
var StaticFS embed.FS
