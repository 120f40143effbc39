package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/aescanero/fftdetect/pkg/domain"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// printBanner writes the human-readable startup summary
func printBanner(w io.Writer, network domain.NetworkInfo, routes gin.RoutesInfo, logDir string) {
	fmt.Fprintf(w, "\n%s=== FFT Detection Server ===%s\n", ansiCyan, ansiReset)
	fmt.Fprintf(w, "\n%sServer is running!%s\n", ansiGreen, ansiReset)
	fmt.Fprintf(w, "\nLocal access: %s%s%s\n", ansiYellow, network.Localhost, ansiReset)

	if len(network.Networks) > 0 {
		fmt.Fprintln(w, "\nNetwork access:")
		for _, n := range network.Networks {
			fmt.Fprintf(w, "- %s: %s%s%s\n", n.Interface, ansiYellow, n.URL, ansiReset)
		}
	} else {
		fmt.Fprintf(w, "\n%sNo network interfaces found!%s\n", ansiRed, ansiReset)
	}

	sorted := make(gin.RoutesInfo, len(routes))
	copy(sorted, routes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Method < sorted[j].Method
	})

	fmt.Fprintln(w, "\nAvailable endpoints:")
	for _, r := range sorted {
		fmt.Fprintf(w, "- %-4s %s%s%s\n", r.Method, ansiYellow, r.Path, ansiReset)
	}

	fmt.Fprintln(w, "\nLogs directory:", logDir)
	fmt.Fprint(w, "\nPress CTRL+C to stop\n\n")
}
