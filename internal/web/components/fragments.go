package components

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// UnitListContent renders the live unit table body pushed over SSE.
func UnitListContent(units []UnitData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, u := range units {
			rowClass := "unit-row"
			badge := "OK"
			if u.Lost {
				rowClass = "unit-row unit-lost"
				badge = "LOST SIGNAL"
			}
			_, err := fmt.Fprintf(w,
				`<tr class="%s" data-unit="%s" data-lat="%f" data-lng="%f"><td>%s</td><td>%s</td><td>%s</td></tr>`,
				rowClass, html.EscapeString(u.UnitID), u.Latitude, u.Longitude,
				html.EscapeString(u.DisplayName), html.EscapeString(u.LastSeen), badge)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// AlertListContent renders the lost-signal alert entries, newest first.
func AlertListContent(alerts []AlertData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for i := len(alerts) - 1; i >= 0; i-- {
			a := alerts[i]
			_, err := fmt.Fprintf(w,
				`<div class="alert alert-critical"><span class="alert-time">%s</span> Lost signal: %s</div>`,
				html.EscapeString(a.At), html.EscapeString(a.DisplayName))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MessageListContent renders the message feed fragment.
func MessageListContent(msgs []MessageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, m := range msgs {
			class := "message"
			if m.Priority == "high" {
				class = "message message-high"
			}
			if !m.IsRead {
				class += " message-unread"
			}
			_, err := fmt.Fprintf(w,
				`<div class="%s" data-id="%d"><span class="message-sender">%s</span><h4>%s</h4><p>%s</p><span class="message-time">%s</span></div>`,
				class, m.ID, html.EscapeString(m.Sender), html.EscapeString(m.Title),
				html.EscapeString(m.Body), html.EscapeString(m.SentAt))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
