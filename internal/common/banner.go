package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner writes the server startup banner to stderr
func PrintBanner(config *Config) {
	writeBanner(os.Stderr, config)
}

func writeBanner(w io.Writer, config *Config) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 60) + banner.ColorReset

	refresh := "disabled"
	if config.Refresh.Enabled {
		refresh = config.Refresh.Schedule
	}
	provider := "not configured"
	if config.Clients.RapidAPI.Configured() {
		provider = config.Clients.RapidAPI.Host
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	fmt.Fprintf(w, "%s  FUNDFOLIO  mutual fund NAV sync & portfolio valuation%s\n\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n\n", hr)

	kvLines := [][2]string{
		{"Environment", config.Environment},
		{"Listen", config.Server.Address()},
		{"Storage", config.Storage.Driver},
		{"Provider", provider},
		{"Fund family", config.Clients.RapidAPI.FundFamily},
		{"NAV refresh", refresh},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintln(w)
}
