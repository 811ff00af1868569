package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"tzcal/internal/model"
)

const productID = "-//tzcal//tzcal//EN"

// propertyColor is the RFC 7986 COLOR property.
const propertyColor = ical.ComponentProperty("COLOR")

// Export serializes events as a VCALENDAR. Instants are written in UTC.
func Export(name string, events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if d, ok := ev.Description.Get(); ok {
			ve.SetDescription(d)
		}
		if c, ok := ev.Color.Get(); ok {
			ve.SetProperty(propertyColor, c)
		}
	}
	return cal.Serialize()
}
