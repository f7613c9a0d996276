package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy extracts one value from a selection. A false result means the
// next strategy in the chain should be tried.
type Strategy[T any] func(s *goquery.Selection) (T, bool)

// Chain tries its strategies in order and stops at the first success.
type Chain[T any] []Strategy[T]

func (c Chain[T]) Run(s *goquery.Selection) (T, bool) {
	for _, strategy := range c {
		if v, ok := strategy(s); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// First returns the first element matching selector.
func First(selector string) Strategy[*goquery.Selection] {
	return func(s *goquery.Selection) (*goquery.Selection, bool) {
		found := s.Find(selector).First()
		return found, found.Length() > 0
	}
}

// TextOf returns the cleaned text of the first element matching selector.
func TextOf(selector string) Strategy[string] {
	return func(s *goquery.Selection) (string, bool) {
		found := s.Find(selector).First()
		if found.Length() == 0 {
			return "", false
		}
		text := cleanText(found)
		return text, text != ""
	}
}

// AttrOf returns attr of the first element matching selector.
func AttrOf(selector, attr string) Strategy[string] {
	return func(s *goquery.Selection) (string, bool) {
		v, ok := s.Find(selector).First().Attr(attr)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// OwnAttr returns attr of the selection itself.
func OwnAttr(attr string) Strategy[string] {
	return func(s *goquery.Selection) (string, bool) {
		v, ok := s.Attr(attr)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// OwnText returns the cleaned text of the selection itself.
func OwnText() Strategy[string] {
	return func(s *goquery.Selection) (string, bool) {
		text := cleanText(s)
		return text, text != ""
	}
}
