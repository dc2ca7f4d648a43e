package session

import (
	"context"
	"fmt"
)

// Event is a user interaction a presentation layer forwards to the session.
type Event interface {
	isEvent()
}

type FetchClicked struct {
	URL string
}

type URLChanged struct {
	URL string
}

type TargetToggled struct {
	Name     string
	Selected bool
}

type SelectAllToggled struct {
	Selected bool
}

type StartClicked struct{}

// Navigated means the user left the page; everything is dropped.
type Navigated struct{}

func (FetchClicked) isEvent()     {}
func (URLChanged) isEvent()       {}
func (TargetToggled) isEvent()    {}
func (SelectAllToggled) isEvent() {}
func (StartClicked) isEvent()     {}
func (Navigated) isEvent()        {}

// Dispatch routes e to the matching transition.
func (c *Coordinator) Dispatch(ctx context.Context, e Event) error {
	switch ev := e.(type) {
	case FetchClicked:
		return c.FetchCatalog(ctx, ev.URL)
	case URLChanged:
		c.SetURL(ev.URL)
		return nil
	case TargetToggled:
		return c.Toggle(ev.Name, ev.Selected)
	case SelectAllToggled:
		c.SelectAll(ev.Selected)
		return nil
	case StartClicked:
		return c.Launch(ctx)
	case Navigated:
		c.Reset()
		return nil
	default:
		return fmt.Errorf("unsupported event %T", e)
	}
}
