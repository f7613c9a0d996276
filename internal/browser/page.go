package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page is the subset of page automation the session manager relies on.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Fill(selector, value string) error
	Click(selector string) error
	WaitForSelector(selector string, timeout time.Duration) error
	Count(selector string) (int, error)
	WaitForLoad(timeout time.Duration) error
	Content() (string, error)
	Text(selector string) (string, error)
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return translate(err)
}

func (p *playwrightPage) Fill(selector, value string) error {
	return translate(p.page.Locator(selector).First().Fill(value))
}

func (p *playwrightPage) Click(selector string) error {
	return translate(p.page.Locator(selector).First().Click())
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return translate(err)
}

func (p *playwrightPage) Count(selector string) (int, error) {
	n, err := p.page.Locator(selector).Count()
	return n, translate(err)
}

func (p *playwrightPage) WaitForLoad(timeout time.Duration) error {
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return translate(err)
}

func (p *playwrightPage) Content() (string, error) {
	html, err := p.page.Content()
	return html, translate(err)
}

func (p *playwrightPage) Text(selector string) (string, error) {
	text, err := p.page.Locator(selector).First().TextContent()
	return text, translate(err)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
