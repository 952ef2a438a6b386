package services

import (
	"fmt"
	"strings"
	"time"

	"tradie_legal_go/models"
)

// GenerateTimelineICS generates an ICS file for a timeline entry so clients
// can add deadlines and milestones to their own calendar.
func GenerateTimelineICS(entry *models.TimelineEntry, caseNumber string) ([]byte, error) {
	if entry.DueAt == nil {
		return nil, fmt.Errorf("timeline entry %s has no due date", entry.ID)
	}

	// Format dates for ICS (YYYYMMDDTHHMMSSZ). Due dates are stored in UTC.
	dateFormat := "20060102T150405Z"
	dtStamp := time.Now().UTC().Format(dateFormat)
	dtStart := entry.DueAt.UTC().Format(dateFormat)
	// Deadlines render as a one-hour block
	dtEnd := entry.DueAt.UTC().Add(time.Hour).Format(dateFormat)

	summary := entry.Title
	if caseNumber != "" {
		summary = fmt.Sprintf("%s (%s)", entry.Title, caseNumber)
	}

	description := entry.Description
	if entry.Type == models.TimelineTypeDeadline {
		if description != "" {
			description += "\n\n"
		}
		description += fmt.Sprintf("Priority: %s", entry.Priority)
	}

	const icsTemplate = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//TradieShield//Timeline//EN
CALSCALE:GREGORIAN
METHOD:PUBLISH
BEGIN:VEVENT
UID:%s
DTSTAMP:%s
DTSTART:%s
DTEND:%s
SUMMARY:%s
DESCRIPTION:%s
STATUS:CONFIRMED
END:VEVENT
END:VCALENDAR`

	icsContent := fmt.Sprintf(icsTemplate,
		entry.ID,
		dtStamp,
		dtStart,
		dtEnd,
		escapeICSText(summary),
		escapeICSText(description),
	)

	return []byte(icsContent), nil
}

// escapeICSText escapes backslashes, semicolons, commas and newlines per RFC 5545
func escapeICSText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
