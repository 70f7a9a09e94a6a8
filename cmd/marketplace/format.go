package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var divider = strings.Repeat("─", 60)

// formatRating renders a 0-5 rating as stars: ★ per whole point, ☆ for a
// remaining half or more, · for the rest.
func formatRating(rating float64) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	full := int(rating)
	half := 0
	if rating-float64(full) >= 0.5 {
		half = 1
	}
	empty := 5 - full - half
	return strings.Repeat("★", full) + strings.Repeat("☆", half) + strings.Repeat("·", empty)
}

// formatDownloads abbreviates a download count: 1.2K, 3.4M.
func formatDownloads(n int64) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	}
	return strconv.FormatInt(n, 10)
}

// formatScore prints a rating the way it appears in the catalog (4.9, 5).
func formatScore(rating float64) string {
	return strconv.FormatFloat(rating, 'f', -1, 64)
}

// formatDate prints the date part of t, or "-" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n  %s\n\n", title)
	fmt.Fprintf(w, "  %s\n", divider)
}

func footer(w io.Writer) {
	fmt.Fprintf(w, "  %s\n\n", divider)
}

// field prints one aligned "Label: value" row of the info view.
func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-14s%s\n", label+":", value)
}
