// Package calendar renders a single item as an iCalendar file that phones
// and desktop calendars can import.
package calendar

import (
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/iliyamo/evanto-api/internal/model"
)

// DefaultDuration is used when an item has no end date.
const DefaultDuration = 2 * time.Hour

const productID = "-//Evanto//Event Calendar//EN"

// Entry is the part of an item that ends up in the calendar.
type Entry struct {
	Title       string
	Description string
	Start       time.Time
	End         *time.Time
	Location    string
}

// EntryFor builds an Entry from an item.  Meetups without a physical
// location point at their online link instead.
func EntryFor(it model.Item) Entry {
	loc := it.Location
	if loc == "" {
		loc = it.MeetupLink
	}
	return Entry{
		Title:       it.Title,
		Description: it.Description,
		Start:       it.StartDate,
		End:         it.EndDate,
		Location:    loc,
	}
}

// Build returns a VCALENDAR with one VEVENT.  Times are written in UTC and
// now becomes the DTSTAMP.
func Build(e Entry, now time.Time) (string, error) {
	if strings.TrimSpace(e.Title) == "" {
		return "", errors.New("calendar: title is required")
	}
	if e.Start.IsZero() {
		return "", errors.New("calendar: start date is required")
	}
	end := e.Start.Add(DefaultDuration)
	if e.End != nil && !e.End.IsZero() {
		end = *e.End
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	ev := cal.AddEvent(uuid.NewString() + "@evanto")
	ev.SetDtStampTime(now.UTC())
	ev.SetStartAt(e.Start.UTC())
	ev.SetEndAt(end.UTC())
	ev.SetSummary(e.Title)
	ev.SetDescription(e.Description)
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	ev.SetStatus(ical.ObjectStatusConfirmed)
	ev.SetProperty(ical.ComponentPropertySequence, "0")

	return cal.Serialize(ical.WithNewLineWindows), nil
}

// Filename is a safe attachment name derived from the title.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "event"
	}
	return name + ".ics"
}
