// Package web embeds the page templates and static assets of the form.
package web

import "embed"

// TemplatesFS holds the page, analysis partial and expense row templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the row/notification script.
//
//go:embed static/*
var StaticFS embed.FS
