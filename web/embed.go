package web

import "embed"

// TemplatesFS embeds the dashboard and admin page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the page scripts and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
