package browser

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

var ErrInterstitialNotCleared = errors.New("robot interstitial could not be cleared")

var interstitialMarkers = []string{
	"Click the button below to continue shopping",
	"Type the characters you see in this image",
}

var interstitialButtons = []string{
	`button:has-text("Continue shopping")`,
	`input[type="submit"][value*="Continue"]`,
	`.a-button-primary`,
	`button.a-button-text`,
}

// IsInterstitial reports whether html is Amazon's robot check page.
func IsInterstitial(html string) bool {
	for _, marker := range interstitialMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// DismissInterstitial clicks through the "continue shopping" robot check if
// the page is showing one. It returns the page content after the attempt
// and whether a check was cleared.
func DismissInterstitial(page Page, html string, logger *slog.Logger) (string, bool, error) {
	if !IsInterstitial(html) {
		return html, false, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("robot interstitial detected, attempting to continue")

	for _, selector := range interstitialButtons {
		count, err := page.Count(selector)
		if err != nil || count == 0 {
			continue
		}

		if err := page.Click(selector); err != nil {
			logger.Warn("failed to click interstitial button", "selector", selector, "error", err)
			continue
		}
		if err := page.WaitForLoad(15 * time.Second); err != nil {
			logger.Warn("interstitial navigation did not settle", "error", err)
		}

		content, err := page.Content()
		if err != nil {
			return html, false, err
		}
		if !IsInterstitial(content) {
			logger.Info("robot interstitial cleared")
			return content, true, nil
		}
	}

	return html, false, ErrInterstitialNotCleared
}
