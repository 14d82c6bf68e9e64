package views

import "embed"

//go:embed templates/*.html templates/partials/*.html
var viewsFS embed.FS

//go:embed static/*
var staticFS embed.FS
