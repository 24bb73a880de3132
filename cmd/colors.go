package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToUpper(status) {
	case "READY":
		return colorSuccess(status)
	case "ERROR", "DNS":
		return colorError(status)
	case "NO HTTPS":
		return colorWarn(status)
	default:
		return status
	}
}
