package common

import (
	"fmt"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner
func PrintBanner(serviceName, environment string, port int, analysisURL, logFile string) {
	version := GetVersion()
	build := GetBuild()

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorCyan).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")

	b.PrintTopLine()
	b.PrintCenteredText("PAGEPULSE COMPANION")
	b.PrintCenteredText("Page Analysis Companion Service")
	b.PrintSeparatorLine()

	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Environment", environment, 15)
	b.PrintKeyValue("Port", fmt.Sprintf("%d", port), 15)
	b.PrintKeyValue("Analysis API", analysisURL, 15)
	b.PrintBottomLine()

	fmt.Printf("\n")

	if logFile != "" {
		pattern := strings.Replace(logFile, ".log", ".{YYYY-MM-DDTHH-MM-SS}.log", 1)
		fmt.Printf("   • Log File: %s\n", pattern)
		fmt.Printf("\n")
	}

	printCompanionInfo()
	fmt.Printf("\n")
}

// printCompanionInfo displays what the companion does for the popup
func printCompanionInfo() {
	fmt.Printf("🔍 Companion Surfaces:\n")
	fmt.Printf("   • POST /analyze      - Analyze extension-captured page HTML\n")
	fmt.Printf("   • POST /analyze/tab  - Capture and analyze the active browser tab\n")
	fmt.Printf("   • POST /analyze/url  - Fetch and analyze a manually entered URL\n")
	fmt.Printf("   • GET  /history      - Stored analysis results, newest first\n")
	fmt.Printf("   • WS   /ws           - Live analysis progress events\n")
}

// PrintShutdownBanner displays the application shutdown banner
func PrintShutdownBanner(serviceName string) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorCyan).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText(serviceName)
	b.PrintBottomLine()
	fmt.Println()
}

// PrintColorizedMessage prints a message with specified color
func PrintColorizedMessage(color, message string) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green
func PrintSuccess(message string) {
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("✓ %s", message))
}

// PrintError prints an error message in red
func PrintError(message string) {
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("✗ %s", message))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(message string) {
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("⚠ %s", message))
}
