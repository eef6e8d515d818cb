package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoTimeRange is returned when a message contains no recognizable time
// range like "3 to 4 pm" or "15:00-16:00".
var ErrNoTimeRange = errors.New("time range not found in text")

var (
	timeRangePattern = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:to|-|–)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	datePattern      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	titleStrippers   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)schedule.*?(meeting|appointment|call)`),
		regexp.MustCompile(`(?i)\b(tomorrow|today)\b`),
		regexp.MustCompile(`(?i)\bnext\s+\w+\b`),
		regexp.MustCompile(`(?i)\bfrom\s+\d+(?::\d{2})?\b`),
		regexp.MustCompile(`(?i)\bto\s+\d+(?::\d{2})?\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(am|pm)?\b`),
		regexp.MustCompile(`(?i)\b(am|pm)\b`),
		regexp.MustCompile(`[-–]`),
		regexp.MustCompile(`(?i)\bat\b\s*$`),
	}
	cancelKeywords = []string{"cancel", "delete", "remove", "drop", "rescind", "abort", "discard"}
	weekdays       = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
)

// ExtractDateTime pulls a date and a start/end time range out of natural
// language, relative to now. "tomorrow at 3 to 4 pm" works; missing time
// ranges are an error so the caller can ask the user to be specific.
func ExtractDateTime(text string, now time.Time) (date string, start string, end string, err error) {
	lower := strings.ToLower(text)

	day := now

	switch {
	case strings.Contains(lower, "tomorrow"):
		day = now.AddDate(0, 0, 1)
	case strings.Contains(lower, "today"):
		day = now
	case strings.Contains(lower, "next week"):
		day = now.AddDate(0, 0, 7)
	default:
		if m := datePattern.FindStringSubmatch(text); m != nil {
			parsed, perr := time.Parse("2006-01-02", m[0])
			if perr == nil {
				day = parsed
			}
			// the date's own digits must not be mistaken for a time range
			text = strings.Replace(text, m[0], "", 1)
		} else if wd, ok := findWeekday(lower); ok {
			day = nextWeekday(now, wd, strings.Contains(lower, "next "))
		}
	}

	m := timeRangePattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", "", ErrNoTimeRange
	}

	startHour, _ := strconv.Atoi(m[1])
	startMin := 0
	if len(m[2]) > 0 {
		startMin, _ = strconv.Atoi(m[2])
	}
	endHour, _ := strconv.Atoi(m[4])
	endMin := 0
	if len(m[5]) > 0 {
		endMin, _ = strconv.Atoi(m[5])
	}

	startMeridiem := strings.ToLower(m[3])
	endMeridiem := strings.ToLower(m[6])

	// "3 to 4 pm" means both ends are pm
	if len(startMeridiem) == 0 {
		startMeridiem = endMeridiem
	}
	if len(endMeridiem) == 0 {
		endMeridiem = startMeridiem
	}

	startHour = to24Hour(startHour, startMeridiem)
	endHour = to24Hour(endHour, endMeridiem)

	return day.Format("2006-01-02"),
		fmt.Sprintf("%02d:%02d", startHour, startMin),
		fmt.Sprintf("%02d:%02d", endHour, endMin),
		nil
}

// ExtractTitle strips scheduling phrases out of the message and returns what
// remains as the meeting title, defaulting to "Meeting".
func ExtractTitle(text string) string {
	title := text

	for _, pattern := range titleStrippers {
		title = pattern.ReplaceAllString(title, "")
	}

	title = strings.Join(strings.Fields(title), " ")
	title = strings.Trim(title, " .,:;'\"")

	if len(title) == 0 {
		return "Meeting"
	}

	// cap on a rune boundary so multi-byte characters survive intact
	if runes := []rune(title); len(runes) > 100 {
		title = string(runes[:100])
	}

	return title
}

// IsCancelRequest reports whether the message asks to cancel a meeting.
func IsCancelRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range cancelKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func findWeekday(lower string) (time.Weekday, bool) {
	for name, wd := range weekdays {
		if strings.Contains(lower, name) {
			return wd, true
		}
	}
	return 0, false
}

func nextWeekday(now time.Time, wd time.Weekday, skipThisWeek bool) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	if skipThisWeek && days < 7 {
		days += 7
	}
	return now.AddDate(0, 0, days)
}

func to24Hour(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour < 12 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}
	return hour
}
